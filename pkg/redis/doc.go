// Package redis connects to Redis with retries and provides two small
// coordination primitives built on go-redis:
//
//   - Locker: SET NX PX mutual exclusion with token-checked release.
//   - Deduper: bounded-time memory of processed delivery ids.
//
// Usage:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	locker := redis.NewLocker(client, cfg.KeyPrefix)
//	release, err := locker.Acquire(ctx, "preapproval:"+id, cfg.LockTTL)
//	if err != nil {
//		return err
//	}
//	defer release()
//
// Healthcheck returns a func(context.Context) error suitable for readiness probes.
package redis

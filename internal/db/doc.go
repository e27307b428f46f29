// Package db is the Postgres implementation of subscription.Store together
// with the embedded schema migrations.
//
// The schema enforces the invariants the reconciliation logic relies on:
// provider ids are unique, subscriptions reference existing users and plans,
// and a partial unique index allows at most one ACTIVE subscription per user.
// ActivateForUser additionally serialises activations per user with a
// transaction-scoped advisory lock.
package db

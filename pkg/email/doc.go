// Package email sends transactional e-mail through Postmark, or writes it to
// disk in development.
//
// New picks the implementation from Config: with Postmark tokens set it
// returns a Postmark sender, otherwise a DevSender that stores every message
// as an HTML file plus JSON metadata in Config.DevOutputDir.
//
//	sender, err := email.New(cfg)
//	if err != nil {
//	    return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "user@example.com",
//	    Subject:  "Tu suscripcion esta activa",
//	    Body:     templates.Paragraph(templates.Text("Gracias")),
//	    Tag:      "subscription-activated",
//	    Metadata: map[string]string{"subscription_id": id},
//	})
//
// Bodies are templ components from the templates subpackage, rendered at send
// time. All senders validate SendEmailParams first and return ErrInvalidParams
// for bad input, ErrFailedToRender when the body fails to render and
// ErrFailedToSendEmail for delivery failures.
package email

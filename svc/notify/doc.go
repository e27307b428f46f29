// Package notify e-mails subscribers about subscription lifecycle changes.
// Mailer implements subscription.Notifier on top of an email.EmailSender.
package notify

// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain types so the domain layer stays free of
// ORM tags; repositories convert between the two.
//
//   - purchasing.go: purchase orders, their items and their audit history
//   - outbox.go: outbox entries for event delivery
package models

// Package models holds the gorm rows behind the ledger tables. Each model
// converts to and from its domain entity with ToDomain/FromDomain, so the
// domain packages carry no gorm tags.
//
// Tests build their schema with AutoMigrate(All()...); production schemas
// come from the SQL files in /migrations and must stay in step with the tags
// here.
package models

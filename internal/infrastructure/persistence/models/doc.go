// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Structure:
// - base.go: Base persistence models (BaseModel, TenantAggregateModel)
// - billing.go: Invoice, InvoiceItem and Payment
// - clinical.go: ServiceOrder and queue admission failures
// - registry.go: read-only collaborator rows (patients, visits, employees, services, departments)
// - sequence.go: per-tenant, per-period counters behind invoice and queue numbers
package models

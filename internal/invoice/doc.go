// Package invoice provides the record types shared by every other internal
// package.
//
// This package imports nothing internal. The store, manager, harness and CLI
// all speak in terms of invoice.Invoice so the record shape is defined once.
//
// Key constraints:
//   - ID is assigned by the store on insert and never changes
//   - Number is the business invoice number and must be unique across live records
//   - Name is optional and carries no uniqueness guarantee
//   - IDs are typed int64; textual IDs must go through ParseID
package invoice

// Package numbering holds the document number formats and the per-tenant counters.
package numbering

import "github.com/erp/backoffice/internal/domain/shared"

// DocumentType identifies a numbered document series
type DocumentType string

const (
	DocumentTypeSalesOrder    DocumentType = "salesOrder"
	DocumentTypeInvoice       DocumentType = "invoice"
	DocumentTypePurchaseOrder DocumentType = "purchaseOrder"
	DocumentTypeJournal       DocumentType = "journal"
	DocumentTypePayment       DocumentType = "payment"
	DocumentTypeProduct       DocumentType = "product"
	DocumentTypeCustomer      DocumentType = "customer"
	DocumentTypeSupplier      DocumentType = "supplier"
	DocumentTypeEmployee      DocumentType = "employee"
	DocumentTypeStockMovement DocumentType = "stockMovement"
	DocumentTypeWarehouse     DocumentType = "warehouse"
)

var defaultFormats = map[DocumentType]string{
	DocumentTypeSalesOrder:    "SO-{YYYY}-{0000}",
	DocumentTypeInvoice:       "INV-{YYYY}-{0000}",
	DocumentTypePurchaseOrder: "PO-{YYYY}-{0000}",
	DocumentTypeJournal:       "JRN-{YYYY}-{0000}",
	DocumentTypePayment:       "PAY-{YYYY}-{0000}",
	DocumentTypeProduct:       "PRD-{0000}",
	DocumentTypeCustomer:      "CUST-{0000}",
	DocumentTypeSupplier:      "SUPP-{0000}",
	DocumentTypeEmployee:      "EMP-{0000}",
	DocumentTypeStockMovement: "STM-{YYYY}{MM}-{####}",
	DocumentTypeWarehouse:     "WH-{###}",
}

// AllDocumentTypes returns every known document type in a stable order
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeSalesOrder,
		DocumentTypeInvoice,
		DocumentTypePurchaseOrder,
		DocumentTypeJournal,
		DocumentTypePayment,
		DocumentTypeProduct,
		DocumentTypeCustomer,
		DocumentTypeSupplier,
		DocumentTypeEmployee,
		DocumentTypeStockMovement,
		DocumentTypeWarehouse,
	}
}

// IsValid checks if the document type is known
func (t DocumentType) IsValid() bool {
	_, ok := defaultFormats[t]
	return ok
}

// DefaultFormat returns the built-in template for the type
func (t DocumentType) DefaultFormat() string {
	return defaultFormats[t]
}

// ParseDocumentType converts a raw string into a DocumentType
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	if !t.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Unknown document type: "+s)
	}
	return t, nil
}

// DefaultFormats returns a copy of the built-in templates
func DefaultFormats() map[DocumentType]string {
	out := make(map[DocumentType]string, len(defaultFormats))
	for k, v := range defaultFormats {
		out[k] = v
	}
	return out
}

package model

import "strings"

// Field names a canonical transaction field. Field names only appear at the
// configuration boundary: bank field mappings and processing rules.
type Field string

const (
	FieldDate                 Field = "date"
	FieldDescription          Field = "description"
	FieldAmount               Field = "amount"
	FieldDebit                Field = "debit"
	FieldCredit               Field = "credit"
	FieldAccount              Field = "account"
	FieldAccountID            Field = "accountId"
	FieldFromAccountID        Field = "fromAccountId"
	FieldToAccountID          Field = "toAccountId"
	FieldDestinationAccountID Field = "destinationAccountId"
	FieldDestinationAmount    Field = "destinationAmount"
	FieldTransactionType      Field = "transactionType"
	FieldTransactionGroup     Field = "transactionGroup"
	FieldCategoryID           Field = "categoryId"
	FieldSubcategoryID        Field = "subcategoryId"
	FieldPayee                Field = "payee"
	FieldPayer                Field = "payer"
	FieldReference            Field = "reference"
	FieldTag                  Field = "tag"
	FieldTags                 Field = "tags"
	FieldNotes                Field = "notes"
	FieldCurrencyID           Field = "currencyId"
)

var allFields = []Field{
	FieldDate, FieldDescription, FieldAmount, FieldDebit, FieldCredit,
	FieldAccount, FieldAccountID, FieldFromAccountID, FieldToAccountID,
	FieldDestinationAccountID, FieldDestinationAmount, FieldTransactionType,
	FieldTransactionGroup, FieldCategoryID, FieldSubcategoryID, FieldPayee,
	FieldPayer, FieldReference, FieldTag, FieldTags, FieldNotes, FieldCurrencyID,
}

var mappingFields = map[Field]bool{
	FieldDate:                 true,
	FieldDescription:          true,
	FieldAmount:               true,
	FieldDebit:                true,
	FieldCredit:               true,
	FieldAccount:              true,
	FieldDestinationAccountID: true,
	FieldDestinationAmount:    true,
	FieldTransactionType:      true,
	FieldTransactionGroup:     true,
	FieldCategoryID:           true,
	FieldSubcategoryID:        true,
	FieldPayee:                true,
	FieldPayer:                true,
	FieldReference:            true,
	FieldTag:                  true,
	FieldNotes:                true,
}

// ParseField resolves a field name case-insensitively.
func ParseField(name string) (Field, bool) {
	name = strings.TrimSpace(name)
	for _, f := range allFields {
		if strings.EqualFold(string(f), name) {
			return f, true
		}
	}
	return "", false
}

// IsMappingKey reports whether f may be used as a key in a bank field mapping.
func (f Field) IsMappingKey() bool {
	return mappingFields[f]
}

// IsTransactionField reports whether f names a field of ImportTransaction.
// debit and credit only exist in source files.
func (f Field) IsTransactionField() bool {
	return f != FieldDebit && f != FieldCredit && f != ""
}

// Canonical folds aliases onto the field they stand for.
func (f Field) Canonical() Field {
	if f == FieldAccount {
		return FieldAccountID
	}
	return f
}

// IsNumeric reports whether the field holds a decimal amount.
func (f Field) IsNumeric() bool {
	switch f.Canonical() {
	case FieldAmount, FieldDebit, FieldCredit, FieldDestinationAmount:
		return true
	}
	return false
}

// FieldMapping maps canonical fields to source column names.
type FieldMapping map[Field]string

// Column returns the source column mapped to f.
func (m FieldMapping) Column(f Field) (string, bool) {
	col, ok := m[f]
	if !ok || strings.TrimSpace(col) == "" {
		return "", false
	}
	return col, true
}

// FieldForColumn returns the field fed by a source column. Columns mapped
// to debit or credit return those fields; they are not transaction fields.
func (m FieldMapping) FieldForColumn(column string) (Field, bool) {
	column = strings.TrimSpace(column)
	for _, f := range allFields {
		col, ok := m.Column(f)
		if !ok || !strings.EqualFold(strings.TrimSpace(col), column) {
			continue
		}
		return f.Canonical(), true
	}
	return "", false
}

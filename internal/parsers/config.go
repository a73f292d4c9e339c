package parsers

import (
	"fmt"
	"strings"
)

// StatementFormat names the columns of a bank statement export
type StatementFormat struct {
	Name              string            `json:"name"`
	ExternalIDColumn  string            `json:"external_id_column"`
	PostedAtColumn    string            `json:"posted_at_column"`
	AmountColumn      string            `json:"amount_column"`
	CurrencyColumn    string            `json:"currency_column"`
	DescriptionColumn string            `json:"description_column"`
	DateFormat        string            `json:"date_format,omitempty"`
	Delimiter         rune              `json:"delimiter"`
	DecimalComma      bool              `json:"decimal_comma,omitempty"`
	ColumnAliases     map[string]string `json:"column_aliases,omitempty"`
	Description       string            `json:"description,omitempty"`
}

// Validate checks that the columns every import needs are named
func (sf *StatementFormat) Validate() error {
	if strings.TrimSpace(sf.Name) == "" {
		return fmt.Errorf("format name cannot be empty")
	}

	if strings.TrimSpace(sf.PostedAtColumn) == "" {
		return fmt.Errorf("posted at column cannot be empty")
	}

	if strings.TrimSpace(sf.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}

	if sf.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}

	return nil
}

// GetColumnName returns the actual column name, checking aliases first
func (sf *StatementFormat) GetColumnName(standardName string) string {
	if alias, exists := sf.ColumnAliases[standardName]; exists {
		return alias
	}

	switch standardName {
	case "external_id":
		return sf.ExternalIDColumn
	case "posted_at":
		return sf.PostedAtColumn
	case "amount":
		return sf.AmountColumn
	case "currency":
		return sf.CurrencyColumn
	case "description":
		return sf.DescriptionColumn
	default:
		return standardName
	}
}

// RequiredColumns lists the header columns a file must carry
func (sf *StatementFormat) RequiredColumns() []string {
	return []string{sf.GetColumnName("posted_at"), sf.GetColumnName("amount")}
}

// Predefined statement formats
var (
	// StandardFormat mirrors the import API field names
	StandardFormat = &StatementFormat{
		Name:              "standard",
		ExternalIDColumn:  "external_id",
		PostedAtColumn:    "posted_at",
		AmountColumn:      "amount",
		CurrencyColumn:    "currency",
		DescriptionColumn: "description",
		Delimiter:         ',',
		Description:       "Column names match the bulk import fields",
	}

	// EuropeanFormat is a semicolon separated export with day-first dates
	EuropeanFormat = &StatementFormat{
		Name:              "european",
		ExternalIDColumn:  "reference",
		PostedAtColumn:    "value_date",
		AmountColumn:      "amount",
		CurrencyColumn:    "currency",
		DescriptionColumn: "details",
		DateFormat:        "02.01.2006",
		Delimiter:         ';',
		DecimalComma:      true,
		Description:       "Semicolon delimited export with DD.MM.YYYY dates",
	}

	// USFormat uses month-first dates and a memo column
	USFormat = &StatementFormat{
		Name:              "us",
		ExternalIDColumn:  "transaction_id",
		PostedAtColumn:    "posting_date",
		AmountColumn:      "amount",
		CurrencyColumn:    "currency",
		DescriptionColumn: "memo",
		DateFormat:        "01/02/2006",
		Delimiter:         ',',
		Description:       "Comma delimited export with MM/DD/YYYY dates",
	}
)

// GetStatementFormat returns a predefined format by name
func GetStatementFormat(name string) *StatementFormat {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard":
		return StandardFormat
	case "european":
		return EuropeanFormat
	case "us":
		return USFormat
	default:
		return nil
	}
}

// ListStatementFormats returns all predefined formats
func ListStatementFormats() []*StatementFormat {
	return []*StatementFormat{StandardFormat, EuropeanFormat, USFormat}
}

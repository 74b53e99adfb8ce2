package importer

import (
	"strings"

	"github.com/cleared-dev/tally/internal/textnorm"
)

// Role is the meaning of a CSV column.
type Role string

const (
	RoleDate         Role = "date"
	RoleAmount       Role = "amount"
	RoleDescription  Role = "description"
	RoleReference    Role = "reference"
	RoleCounterparty Role = "counterparty"
	RoleCurrency     Role = "currency"
)

// requiredRoles must all resolve or the whole parse fails.
var requiredRoles = []Role{RoleDate, RoleAmount, RoleDescription}

// optionalRoles are resolved after the required ones, from the remaining columns.
var optionalRoles = []Role{RoleReference, RoleCounterparty, RoleCurrency}

// aliases lists known header names per role, most specific first. Matching
// is on textnorm.Key, so case, accents and whitespace are ignored.
var aliases = map[Role][]string{
	RoleDate: {
		"Booking Date", "Transaction Date", "Posting Date", "Posted Date",
		"Date", "Value Date", "Fecha", "Fecha Operación", "Fecha Valor",
		"Buchungstag", "Buchungsdatum", "Datum", "Date Opération", "Data",
	},
	RoleAmount: {
		"Amount", "Transaction Amount", "Importe", "Monto", "Betrag",
		"Umsatz", "Montant", "Valor", "Importo", "Bedrag",
	},
	RoleDescription: {
		"Description", "Transaction Description", "Details", "Narrative",
		"Memo", "Concepto", "Descripción", "Beschreibung", "Buchungstext",
		"Libellé", "Descrição", "Text",
	},
	RoleReference: {
		"Payment Reference", "Reference", "Ref", "Referencia", "Referenz",
		"Verwendungszweck", "Remittance Information", "End-to-End Reference",
		"Référence",
	},
	RoleCounterparty: {
		"Counterparty", "Payee", "Beneficiary", "Merchant", "Name",
		"Beneficiario", "Empfänger", "Auftraggeber/Empfänger",
		"Beguenstigter/Zahlungspflichtiger", "Contraparte", "Bénéficiaire",
	},
	RoleCurrency: {
		"Currency", "Moneda", "Währung", "Devise", "Divisa",
	},
}

// aliasKeys is aliases folded once at init.
var aliasKeys = func() map[Role][]string {
	out := make(map[Role][]string, len(aliases))
	for role, names := range aliases {
		for _, n := range names {
			out[role] = append(out[role], textnorm.Key(n))
		}
	}
	return out
}()

// Columns maps resolved roles to column indexes.
type Columns map[Role]int

// Index returns the column for role and whether it was resolved.
func (c Columns) Index(role Role) (int, bool) {
	i, ok := c[role]
	return i, ok
}

// DetectColumns resolves roles against a header row. Each column serves
// at most one role. Missing required roles are reported together.
func DetectColumns(header []string) (Columns, error) {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = textnorm.Key(h)
	}

	cols := make(Columns)
	claimed := make(map[int]bool)
	resolve := func(role Role) bool {
		for _, alias := range aliasKeys[role] {
			for i, k := range keys {
				if k == alias && !claimed[i] {
					cols[role] = i
					claimed[i] = true
					return true
				}
			}
		}
		return false
	}

	var missing []string
	for _, role := range requiredRoles {
		if !resolve(role) {
			missing = append(missing, string(role))
		}
	}
	if len(missing) > 0 {
		return nil, &StructuralError{
			Reason: "cannot resolve required columns: " + strings.Join(missing, ", "),
		}
	}

	for _, role := range optionalRoles {
		resolve(role)
	}
	return cols, nil
}

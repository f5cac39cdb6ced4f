package core

const (
	AccountBanco    AccountType = "banco"
	AccountCartao   AccountType = "cartao"
	AccountDinheiro AccountType = "dinheiro"
	AccountReserva  AccountType = "reserva"
)

type (
	AccountType string

	// Account is a reference record. The ledger only reads it.
	Account struct {
		ID    string      `json:"id"`
		Label string      `json:"label"`
		Owner string      `json:"owner"`
		Color string      `json:"color,omitempty"`
		Type  AccountType `json:"type"`
		// DueDay is the invoice due day for credit cards. Zero means the
		// last day of the month.
		DueDay int `json:"dueDay,omitempty"`
	}

	// Category is an entry of the settings/categories document.
	Category struct {
		ID    string    `json:"id"`
		Label string    `json:"label"`
		Type  EntryType `json:"type,omitempty"`
	}
)

// AccountIndex looks accounts up by id.
type AccountIndex map[string]Account

// IndexAccounts builds an AccountIndex.
func IndexAccounts(accounts []Account) AccountIndex {
	idx := make(AccountIndex, len(accounts))
	for _, a := range accounts {
		idx[a.ID] = a
	}
	return idx
}

// OwnerOf resolves an entry owner through its account, falling back to
// the entry's own owner field.
func (idx AccountIndex) OwnerOf(e Entry) string {
	if a, ok := idx[e.AccountID]; ok && a.Owner != "" {
		return a.Owner
	}
	return e.Owner
}

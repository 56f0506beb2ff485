package indexer

// SendersTable holds one row per distinct transaction sender.
var SendersTable = Table{
	Name: "senders",
	Columns: []ColumnDef{
		{Name: "sender", Type: "BYTEA NOT NULL", Key: true},
	},
}

// Sender is the 32-byte address that signed a transaction.
type Sender struct {
	Sender []byte
}

func (s Sender) Key() string   { return string(s.Sender) }
func (s Sender) Values() []any { return []any{s.Sender} }

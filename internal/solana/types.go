package solana

// DetailLevel selects how much transaction detail getBlock returns.
type DetailLevel string

// Supported transaction detail levels.
const (
	DetailNone       DetailLevel = "none"
	DetailSignatures DetailLevel = "signatures"
	DetailFull       DetailLevel = "full"
)

// Block represents a Solana block. The JSON shape is stable: cached
// blocks are persisted in this encoding.
type Block struct {
	Slot         int64         `json:"slot"`
	BlockTime    *int64        `json:"blockTime"`
	Transactions []Transaction `json:"transactions,omitempty"`
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64               `json:"slot"`
	Signature string              `json:"signature"`
	BlockTime int64               `json:"blockTime"` // Unix timestamp (seconds)
	Meta      *TransactionMeta    `json:"meta,omitempty"`
	Message   *TransactionMessage `json:"message,omitempty"`
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}        `json:"err"`
	LogMessages       []string           `json:"logMessages,omitempty"`
	InnerInstructions []InnerInstruction `json:"innerInstructions,omitempty"`
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string        `json:"accountKeys"`
	Instructions []CompiledInstr `json:"instructions,omitempty"`
}

// CompiledInstr is one instruction of a transaction message. Account
// references are indices into the message account key list; Data is the
// base58-encoded instruction payload.
type CompiledInstr struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"`
}

// InnerInstruction groups CPI instructions under their outer index.
type InnerInstruction struct {
	Index        int             `json:"index"`
	Instructions []CompiledInstr `json:"instructions"`
}

// ProgramID resolves the program address of an instruction, or "" when
// the index is out of range.
func (m *TransactionMessage) ProgramID(in CompiledInstr) string {
	if in.ProgramIDIndex < 0 || in.ProgramIDIndex >= len(m.AccountKeys) {
		return ""
	}
	return m.AccountKeys[in.ProgramIDIndex]
}

// AccountList resolves the ordered account addresses of an instruction.
// Out-of-range indices resolve to "" so positional roles stay aligned.
func (m *TransactionMessage) AccountList(in CompiledInstr) []string {
	accounts := make([]string, len(in.Accounts))
	for i, idx := range in.Accounts {
		if idx >= 0 && idx < len(m.AccountKeys) {
			accounts[i] = m.AccountKeys[idx]
		}
	}
	return accounts
}

// Package wallet implements the storage writer spec §4.6 describes
// (ingestTransaction) against the external wallet-storage contract spec §3
// names abstractly, plus the owners set the decoder pipeline and writer both
// consult. Grounded on storage/queries.go's SimpleDB for the
// transaction-scoped, serializable "unit of work" shape; the record types
// here reuse spec §3's field names directly since no teacher analogue
// models a BRC-100-style wallet storage schema.
package wallet

import "context"

// TransactionStatus is one of the two states ingestTransaction may assign a
// freshly inserted transaction row.
type TransactionStatus string

const (
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusUnproven  TransactionStatus = "unproven"
)

// TransactionRecord is one row of the wallet's transactions table.
type TransactionRecord struct {
	ID               int
	Txid             string
	Status           TransactionStatus
	IsOutgoing       bool
	SatoshisSpent    uint64
	SatoshisReceived uint64
	Satoshis         int64
	RawTx            []byte
	Reference        string
}

// TransactionQuery is a partial filter passed to FindTransactions; a nil
// field means "don't filter on this".
type TransactionQuery struct {
	Txid *string
}

// OutputRecord is one row of the wallet's outputs table.
type OutputRecord struct {
	ID                 int
	TxID               int
	Txid               string
	Vout               uint32
	Outpoint           string
	Satoshis           uint64
	LockingScript      []byte
	Owner              string
	Basket             string
	Change             bool
	Purpose            string
	Type               string
	ProvidedBy         string
	Spendable          bool
	SpentBy            *int
	CustomInstructions *string
}

// OutputQuery is a partial filter passed to FindOutputs.
type OutputQuery struct {
	Txid      *string
	Vout      *uint32
	Outpoint  *string
	Spendable *bool
}

// OutputPatch merges into a stored OutputRecord; nil fields leave the
// stored value unchanged, matching updateOutput's "patch" semantics.
type OutputPatch struct {
	Spendable *bool
	SpentBy   *int
}

// Store is the external wallet-storage contract spec §3 names abstractly.
// Implementations are expected to give Transaction true serializable
// isolation: every mutation ingestTransaction performs for one call happens
// inside a single call to Transaction, and external readers never observe a
// partially applied transaction.
type Store interface {
	FindTransactions(ctx context.Context, q TransactionQuery) ([]*TransactionRecord, error)
	InsertTransaction(ctx context.Context, rec *TransactionRecord) (int, error)

	FindOutputs(ctx context.Context, q OutputQuery) ([]*OutputRecord, error)
	InsertOutput(ctx context.Context, rec *OutputRecord) (int, error)
	UpdateOutput(ctx context.Context, id int, patch OutputPatch) error

	FindOrInsertOutputBasket(ctx context.Context, userID int, name string) (int, error)
	FindOrInsertOutputTag(ctx context.Context, userID int, name string) (int, error)
	FindOrInsertOutputTagMap(ctx context.Context, outputID, tagID int) error
	FindOrInsertTxLabel(ctx context.Context, userID int, name string) (int, error)
	FindOrInsertTxLabelMap(ctx context.Context, txID, labelID int) error

	// Transaction runs fn as one serializable unit of work. Implementations
	// of Store passed into fn (if any) may be the same receiver; callers
	// must use the Store passed to fn for every operation performed inside
	// it so the implementation can route them through its transaction.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

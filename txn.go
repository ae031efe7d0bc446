package tdb

// Transactions stage a write-set against the handle and apply it on commit.
// Reads through the handle see staged state. Nesting is permitted only with
// the AllowNesting flag; committing an inner transaction folds its write-set
// into the parent, and only the outermost commit touches the engine.
//
// The engines underneath expose no multi-operation atomicity, so an engine
// failure mid-commit can leave a prefix of the write-set applied. Callers
// needing stronger guarantees should keep transactions small or use an
// engine-level snapshot (see the backup package).

type stagedOp struct {
	val []byte
	del bool
}

type txnFrame struct {
	pending map[string]stagedOp
	wiped   bool
}

func newTxnFrame() *txnFrame {
	return &txnFrame{pending: make(map[string]stagedOp)}
}

func (f *txnFrame) put(key, value []byte) {
	f.pending[string(key)] = stagedOp{val: append([]byte(nil), value...)}
}

func (f *txnFrame) remove(key []byte) {
	f.pending[string(key)] = stagedOp{del: true}
}

func (f *txnFrame) wipe() {
	f.wiped = true
	f.pending = make(map[string]stagedOp)
}

func (db *DB) topFrame() *txnFrame {
	if n := len(db.txns); n > 0 {
		return db.txns[n-1]
	}
	return nil
}

// TransactionStart begins a transaction. On a handle opened without
// [AllowNesting], starting a second transaction fails with [ErrNesting].
func (db *DB) TransactionStart() error {
	if err := db.guardWrite("transaction_start"); err != nil {
		return err
	}
	if len(db.txns) > 0 && !db.flags.Has(AllowNesting) {
		return codeErr("transaction_start", db.path, CodeNesting)
	}
	db.txns = append(db.txns, newTxnFrame())
	return nil
}

// TransactionActive reports whether a transaction is in progress.
func (db *DB) TransactionActive() bool {
	return !db.closed.Load() && len(db.txns) > 0
}

// TransactionCommit applies the innermost transaction: into the parent frame
// when nested, into the engine when outermost. Without an active transaction
// it fails with [ErrInvalid] wrapping [ErrNoTransaction].
func (db *DB) TransactionCommit() error {
	if err := db.guard("transaction_commit"); err != nil {
		return err
	}
	n := len(db.txns)
	if n == 0 {
		return &Error{Op: "transaction_commit", Path: db.path, Code: CodeInvalid, Err: ErrNoTransaction}
	}
	f := db.txns[n-1]
	db.txns = db.txns[:n-1]
	if n > 1 {
		parent := db.txns[n-2]
		if f.wiped {
			parent.wiped = true
			parent.pending = f.pending
			return nil
		}
		for k, op := range f.pending {
			parent.pending[k] = op
		}
		return nil
	}
	if f.wiped {
		if err := db.conn.Wipe(); err != nil {
			return opErr("transaction_commit", db.path, err)
		}
	}
	for k, op := range f.pending {
		var err error
		if op.del {
			// a staged insert-then-delete may name a key the engine
			// never saw
			err = db.conn.Delete([]byte(k))
			if err != nil && errorCodeIsNoExist(err) {
				err = nil
			}
		} else {
			err = db.conn.Store([]byte(k), op.val)
		}
		if err != nil {
			return opErr("transaction_commit", db.path, err)
		}
	}
	return nil
}

// TransactionCancel discards the innermost transaction.
func (db *DB) TransactionCancel() error {
	if err := db.guard("transaction_cancel"); err != nil {
		return err
	}
	n := len(db.txns)
	if n == 0 {
		return &Error{Op: "transaction_cancel", Path: db.path, Code: CodeInvalid, Err: ErrNoTransaction}
	}
	db.txns = db.txns[:n-1]
	return nil
}

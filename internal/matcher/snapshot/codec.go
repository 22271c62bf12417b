// Package snapshot persists an OrderBook's resting orders to a flat
// directory of timestamped files, crash-safe via write-tmp-then-rename.
package snapshot

import (
	"bytes"
	"encoding/gob"

	"github.com/fenrir-labs/matcher/internal/matcher"
)

// payload is the on-disk shape: every resting order plus the update
// id counter, enough for OrderBook.Restore to reconstruct identical
// logical state (queue order within a level is preserved by gob
// encoding Orders in the slice order OrderBook.Snapshot produced it in).
type payload struct {
	Orders       []matcher.Order
	LastUpdateID uint64
}

func encode(book *matcher.OrderBook) ([]byte, error) {
	p := payload{Orders: book.Snapshot(), LastUpdateID: book.LastUpdateID()}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (payload, error) {
	var p payload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return payload{}, err
	}
	return p, nil
}

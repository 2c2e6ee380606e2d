package registry

import (
	"errors"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"stakevault/storage"
)

var (
	// ErrUnknownItem is returned when a lookup or transfer targets an item the
	// registry has never minted.
	ErrUnknownItem = errors.New("registry: unknown item")
	// ErrNotOwner is returned when a transfer is attempted by an account that
	// does not hold the item.
	ErrNotOwner = errors.New("registry: not the item owner")
	// ErrItemExists is returned when minting an identifier that is already
	// taken within the collection.
	ErrItemExists = errors.New("registry: item already exists")
)

var ownerPrefix = []byte("registry/owner/")

func ownerKey(collection [20]byte, itemID string) []byte {
	buf := make([]byte, 0, len(ownerPrefix)+len(collection)+1+len(itemID))
	buf = append(buf, ownerPrefix...)
	buf = append(buf, collection[:]...)
	buf = append(buf, ':')
	buf = append(buf, itemID...)
	return ethcrypto.Keccak256(buf)
}

// Registry tracks ownership of non-fungible items per collection. It is the
// in-process stand-in for the item collection contracts the staking engine
// collaborates with: custody moves through plain ownership transfers.
type Registry struct {
	db storage.Database
}

// NewRegistry creates an item registry over the provided database.
func NewRegistry(db storage.Database) *Registry {
	return &Registry{db: db}
}

// Mint records a new item under the collection with the given initial owner.
func (r *Registry) Mint(collection [20]byte, itemID string, owner [20]byte) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("registry: requires a database")
	}
	if strings.TrimSpace(itemID) == "" {
		return fmt.Errorf("registry: item id must not be empty")
	}
	key := ownerKey(collection, itemID)
	ok, err := r.db.Has(key)
	if err != nil {
		return err
	}
	if ok {
		return ErrItemExists
	}
	return r.db.Put(key, owner[:])
}

// OwnerOf returns the current owner of an item.
func (r *Registry) OwnerOf(collection [20]byte, itemID string) ([20]byte, error) {
	var owner [20]byte
	if r == nil || r.db == nil {
		return owner, fmt.Errorf("registry: requires a database")
	}
	key := ownerKey(collection, itemID)
	ok, err := r.db.Has(key)
	if err != nil {
		return owner, err
	}
	if !ok {
		return owner, ErrUnknownItem
	}
	data, err := r.db.Get(key)
	if err != nil {
		return owner, err
	}
	if len(data) != len(owner) {
		return owner, fmt.Errorf("registry: corrupt owner record for item %s", itemID)
	}
	copy(owner[:], data)
	return owner, nil
}

// Transfer moves an item from its current owner to a new one. The from
// address must match the recorded owner.
func (r *Registry) Transfer(collection [20]byte, itemID string, from, to [20]byte) error {
	owner, err := r.OwnerOf(collection, itemID)
	if err != nil {
		return err
	}
	if owner != from {
		return ErrNotOwner
	}
	return r.db.Put(ownerKey(collection, itemID), to[:])
}

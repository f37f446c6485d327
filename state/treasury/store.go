package treasury

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	nativetreasury "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/treasury"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/storage"
)

// Store persists the vesting buckets, per-user week sets, and the aggregate
// locked total in a key-value database using RLP encoding.
type Store struct {
	db storage.Database
}

func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

const (
	keyTotalLocked = "treasury/total-locked"
	keyParams      = "treasury/params"

	prefixBucket = "treasury/bucket/"
	prefixWeeks  = "treasury/weeks/"
)

func bucketKey(user common.Address, week uint64) []byte {
	buf := make([]byte, 0, len(prefixBucket)+common.AddressLength+8)
	buf = append(buf, prefixBucket...)
	buf = append(buf, user.Bytes()...)
	var weekBytes [8]byte
	binary.BigEndian.PutUint64(weekBytes[:], week)
	return append(buf, weekBytes[:]...)
}

func weeksKey(user common.Address) []byte {
	buf := make([]byte, 0, len(prefixWeeks)+common.AddressLength)
	buf = append(buf, prefixWeeks...)
	return append(buf, user.Bytes()...)
}

func (s *Store) GetBucket(user common.Address, week uint64) (*big.Int, error) {
	raw, err := s.db.Get(bucketKey(user, week))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(raw, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (s *Store) PutBucket(user common.Address, week uint64, amount *big.Int) error {
	raw, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return s.db.Put(bucketKey(user, week), raw)
}

func (s *Store) DeleteBucket(user common.Address, week uint64) error {
	return s.db.Delete(bucketKey(user, week))
}

func (s *Store) GetWeeks(user common.Address) ([]uint64, error) {
	raw, err := s.db.Get(weeksKey(user))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var weeks []uint64
	if err := rlp.DecodeBytes(raw, &weeks); err != nil {
		return nil, err
	}
	return weeks, nil
}

func (s *Store) PutWeeks(user common.Address, weeks []uint64) error {
	if len(weeks) == 0 {
		return s.db.Delete(weeksKey(user))
	}
	raw, err := rlp.EncodeToBytes(weeks)
	if err != nil {
		return err
	}
	return s.db.Put(weeksKey(user), raw)
}

func (s *Store) TotalLocked() (*big.Int, error) {
	raw, err := s.db.Get([]byte(keyTotalLocked))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	if err := rlp.DecodeBytes(raw, total); err != nil {
		return nil, err
	}
	return total, nil
}

func (s *Store) SetTotalLocked(total *big.Int) error {
	raw, err := rlp.EncodeToBytes(total)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyTotalLocked), raw)
}

func (s *Store) GetParams() (*nativetreasury.Params, error) {
	raw, err := s.db.Get([]byte(keyParams))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	params := new(nativetreasury.Params)
	if err := rlp.DecodeBytes(raw, params); err != nil {
		return nil, err
	}
	return params, nil
}

func (s *Store) PutParams(p *nativetreasury.Params) error {
	raw, err := rlp.EncodeToBytes(p)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyParams), raw)
}

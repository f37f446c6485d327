package farm

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	nativefarm "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/farm"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/storage"
)

// Store persists the farm registry, pool accumulators, and user positions in
// a key-value database using RLP encoding. It implements the persistence
// surface the farm engine is wired against.
type Store struct {
	db storage.Database
}

func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

const (
	keyCategoryCount = "farm/category-count"
	keyPoolCount     = "farm/pool-count"
	keyTotalCatWt    = "farm/total-category-weight"
	keyEmission      = "farm/emission"

	prefixCategory    = "farm/category/"
	prefixPool        = "farm/pool/"
	prefixPoolByAsset = "farm/pool-by-asset/"
	prefixStake       = "farm/stake/"
)

func u64Key(prefix string, id uint64) []byte {
	buf := make([]byte, 0, len(prefix)+8)
	buf = append(buf, prefix...)
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], id)
	return append(buf, idBytes[:]...)
}

func addrKey(prefix string, addr common.Address) []byte {
	buf := make([]byte, 0, len(prefix)+common.AddressLength)
	buf = append(buf, prefix...)
	return append(buf, addr.Bytes()...)
}

func stakeKey(poolID uint64, user common.Address) []byte {
	buf := make([]byte, 0, len(prefixStake)+8+common.AddressLength)
	buf = append(buf, prefixStake...)
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], poolID)
	buf = append(buf, idBytes[:]...)
	return append(buf, user.Bytes()...)
}

func (s *Store) getUint64(key []byte) (uint64, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var value uint64
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return 0, err
	}
	return value, nil
}

func (s *Store) putUint64(key []byte, value uint64) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return s.db.Put(key, raw)
}

func (s *Store) CategoryCount() (uint64, error) {
	return s.getUint64([]byte(keyCategoryCount))
}

func (s *Store) GetCategory(id uint64) (*nativefarm.Category, error) {
	raw, err := s.db.Get(u64Key(prefixCategory, id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cat := new(nativefarm.Category)
	if err := rlp.DecodeBytes(raw, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// PutCategory writes the record and, when id equals the current count,
// advances the count so the write registers as an append.
func (s *Store) PutCategory(id uint64, cat *nativefarm.Category) error {
	raw, err := rlp.EncodeToBytes(cat)
	if err != nil {
		return err
	}
	if err := s.db.Put(u64Key(prefixCategory, id), raw); err != nil {
		return err
	}
	count, err := s.CategoryCount()
	if err != nil {
		return err
	}
	if id == count {
		return s.putUint64([]byte(keyCategoryCount), count+1)
	}
	return nil
}

func (s *Store) PoolCount() (uint64, error) {
	return s.getUint64([]byte(keyPoolCount))
}

func (s *Store) GetPool(id uint64) (*nativefarm.Pool, error) {
	raw, err := s.db.Get(u64Key(prefixPool, id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pool := new(nativefarm.Pool)
	if err := rlp.DecodeBytes(raw, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// PutPool follows the same append-at-count contract as PutCategory.
func (s *Store) PutPool(id uint64, pool *nativefarm.Pool) error {
	raw, err := rlp.EncodeToBytes(pool)
	if err != nil {
		return err
	}
	if err := s.db.Put(u64Key(prefixPool, id), raw); err != nil {
		return err
	}
	count, err := s.PoolCount()
	if err != nil {
		return err
	}
	if id == count {
		return s.putUint64([]byte(keyPoolCount), count+1)
	}
	return nil
}

func (s *Store) PoolIDByAsset(asset common.Address) (uint64, bool, error) {
	raw, err := s.db.Get(addrKey(prefixPoolByAsset, asset))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var id uint64
	if err := rlp.DecodeBytes(raw, &id); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *Store) PutPoolIDByAsset(asset common.Address, id uint64) error {
	return s.putUint64(addrKey(prefixPoolByAsset, asset), id)
}

func (s *Store) GetStake(poolID uint64, user common.Address) (*nativefarm.UserStake, error) {
	raw, err := s.db.Get(stakeKey(poolID, user))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	stake := new(nativefarm.UserStake)
	if err := rlp.DecodeBytes(raw, stake); err != nil {
		return nil, err
	}
	return stake, nil
}

func (s *Store) PutStake(poolID uint64, user common.Address, stake *nativefarm.UserStake) error {
	raw, err := rlp.EncodeToBytes(stake)
	if err != nil {
		return err
	}
	return s.db.Put(stakeKey(poolID, user), raw)
}

func (s *Store) TotalCategoryWeight() (uint64, error) {
	return s.getUint64([]byte(keyTotalCatWt))
}

func (s *Store) SetTotalCategoryWeight(total uint64) error {
	return s.putUint64([]byte(keyTotalCatWt), total)
}

func (s *Store) GetEmission() (*nativefarm.Emission, error) {
	raw, err := s.db.Get([]byte(keyEmission))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	em := new(nativefarm.Emission)
	if err := rlp.DecodeBytes(raw, em); err != nil {
		return nil, err
	}
	return em, nil
}

func (s *Store) PutEmission(em *nativefarm.Emission) error {
	raw, err := rlp.EncodeToBytes(em)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyEmission), raw)
}

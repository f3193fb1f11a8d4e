package hap

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// A Store persists the accessory identity and controller pairings
// as key-value blobs.
type Store interface {
	// Set sets the value for the given key.
	Set(key string, value []byte) error

	// Get returns the value for the given key.
	Get(key string) ([]byte, error)

	// Delete removes the value for the given key.
	Delete(key string) error

	// KeysWithSuffix returns all keys ending with the given suffix.
	KeysWithSuffix(suffix string) ([]string, error)
}

// maxPairings is the maximum number of stored controller pairings.
const maxPairings = 16

// KeyPair is the long-term Ed25519 key pair of the accessory.
type KeyPair struct {
	Public  []byte
	Private []byte
}

// Pairing is the pairing with a controller.
type Pairing struct {
	Name       string
	PublicKey  []byte
	Permission byte
}

type storer struct {
	Store
}

func (st *storer) SetString(key string, value string) error {
	return st.Set(key, []byte(value))
}

func (st *storer) GetString(key string) (string, error) {
	b, err := st.Get(key)
	return string(b), err
}

func (st *storer) KeyPair() (KeyPair, error) {
	var kp KeyPair
	b, err := st.Get("keypair")
	if err != nil {
		return kp, err
	}

	err = json.Unmarshal(b, &kp)

	return kp, err
}

func (st *storer) SaveKeyPair(kp KeyPair) error {
	b, err := json.Marshal(&kp)
	if err != nil {
		return err
	}

	return st.Set("keypair", b)
}

// AccessoryId returns the stored accessory id, generating and
// persisting a new one when none exists yet.
func (st *storer) AccessoryId() (string, error) {
	if id, err := st.GetString("uuid"); err == nil && len(id) > 0 {
		return id, nil
	}

	id, err := generateAccessoryId()
	if err != nil {
		return "", err
	}

	return id, st.SetString("uuid", id)
}

// generateAccessoryId returns a random MAC-style device id
// in the form "XX:XX:XX:XX:XX:XX".
func generateAccessoryId() (string, error) {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}

	parts := make([]string, 6)
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}

	return strings.Join(parts, ":"), nil
}

func (st *storer) Pairing(name string) (Pairing, error) {
	return st.pairingForKey(keyForPairingName(name))
}

func (st *storer) SavePairing(p Pairing) error {
	if !st.canAddPairing(p.Name) {
		return fmt.Errorf("pairing table is full (%d)", maxPairings)
	}

	b, err := json.Marshal(&p)
	if err != nil {
		return err
	}

	return st.Set(keyForPairingName(p.Name), b)
}

func (st *storer) DeletePairing(name string) error {
	return st.Delete(keyForPairingName(name))
}

func (st *storer) Pairings() []Pairing {
	var arr []Pairing
	if ks, err := st.KeysWithSuffix(".pairing"); err == nil {
		for _, k := range ks {
			if p, err := st.pairingForKey(k); err == nil {
				arr = append(arr, p)
			}
		}
	}

	return arr
}

// canAddPairing reports whether a pairing for name can be stored
// without growing the table past its capacity.
func (st *storer) canAddPairing(name string) bool {
	if _, err := st.Pairing(name); err == nil {
		return true // updates an existing record
	}

	return len(st.Pairings()) < maxPairings
}

// ConfigNumber returns the stored configuration number, starting at 1.
func (st *storer) ConfigNumber() uint32 {
	s, err := st.GetString("cn")
	if err != nil {
		return 1
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 1
	}

	return uint32(n)
}

func (st *storer) SetConfigNumber(cn uint32) error {
	return st.SetString("cn", strconv.FormatUint(uint64(cn), 10))
}

// ConfigHash returns the stored hash of the accessory database.
func (st *storer) ConfigHash() ([]byte, error) {
	return st.Get("confighash")
}

func (st *storer) SetConfigHash(h []byte) error {
	return st.Set("confighash", h)
}

// Reset wipes the identity, pairings and configuration state.
func (st *storer) Reset() error {
	if ks, err := st.KeysWithSuffix(".pairing"); err == nil {
		for _, k := range ks {
			st.Delete(k)
		}
	}
	for _, k := range []string{"keypair", "uuid", "cn", "confighash", "schema"} {
		st.Delete(k)
	}

	return nil
}

func (st *storer) pairingForKey(key string) (p Pairing, err error) {
	var b []byte
	if b, err = st.Get(key); err == nil {
		err = json.Unmarshal(b, &p)
	}
	return
}

func keyForPairingName(s string) string {
	return hex.EncodeToString([]byte(s)) + ".pairing"
}

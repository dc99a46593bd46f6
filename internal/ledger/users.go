package ledger

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/derxankvs/dataai-api/internal/model"
)

// KeyPrefix is prepended to every generated user key.
const KeyPrefix = "dataai_"

// ErrKeyTaken means the generated key already exists in the registry.
var ErrKeyTaken = errors.New("generated key already exists")

var newKey = func() string {
	return KeyPrefix + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// UserRegistry persists generated user keys in a shared array file,
// appending new users at the end. Uniqueness is checked against the keys
// already present under the ledger lock.
type UserRegistry struct {
	led *Ledger
}

// NewUserRegistry creates a registry over the given ledger file.
func NewUserRegistry(led *Ledger) *UserRegistry {
	return &UserRegistry{led: led}
}

// Create generates a fresh key for nome and persists the record. The key is
// KeyPrefix plus the first segment of a random UUID. A collision with an
// existing key returns ErrKeyTaken without writing.
func (r *UserRegistry) Create(nome string) (model.User, error) {
	if nome == "" {
		nome = "Usuário"
	}

	user := model.User{
		ID:       uuid.NewString(),
		Nome:     nome,
		Key:      newKey(),
		CriadoEm: time.Now().UTC().Format(time.RFC3339),
	}

	err := r.led.Mutate(func(items []json.RawMessage) ([]json.RawMessage, error) {
		for _, item := range items {
			var existing struct {
				Key string `json:"key"`
			}
			if err := json.Unmarshal(item, &existing); err != nil {
				continue
			}
			if existing.Key == user.Key {
				return nil, ErrKeyTaken
			}
		}
		raw, err := json.Marshal(user)
		if err != nil {
			return nil, err
		}
		return append(items, raw), nil
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

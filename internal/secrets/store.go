package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// lightweight per-user session store (file, 0600) with AES-GCM obfuscation.
// Not a replacement for OS keychains but keeps tokens out of plain text.

const fileName = "session.json"

// ErrNoSession is returned by Load when nothing was saved.
var ErrNoSession = errors.New("secrets: no session")

// Session is a persisted login.
type Session struct {
	User      string    `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type sessionFile struct {
	User      string    `json:"user"`
	Token     string    `json:"token"` // base64(ciphertext)
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStore keeps one session in Dir.
type SessionStore struct {
	Dir string
}

func (s SessionStore) Save(sess Session) error {
	if sess.User == "" || sess.Token == "" {
		return fmt.Errorf("secrets: user and token required")
	}
	path, err := s.filePath()
	if err != nil {
		return err
	}
	ct, err := encrypt([]byte(sess.Token))
	if err != nil {
		return err
	}
	return save(path, sessionFile{
		User:      sess.User,
		Token:     base64.StdEncoding.EncodeToString(ct),
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s SessionStore) Load() (Session, error) {
	path, err := s.filePath()
	if err != nil {
		return Session{}, err
	}
	sf, err := load(path)
	if err != nil {
		return Session{}, err
	}
	if sf.Token == "" {
		return Session{}, ErrNoSession
	}
	raw, err := base64.StdEncoding.DecodeString(sf.Token)
	if err != nil {
		return Session{}, err
	}
	pt, err := decrypt(raw)
	if err != nil {
		return Session{}, err
	}
	return Session{User: sf.User, Token: string(pt), ExpiresAt: sf.ExpiresAt}, nil
}

func (s SessionStore) Clear() error {
	path, err := s.filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s SessionStore) filePath() (string, error) {
	dir := s.Dir
	if dir == "" {
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(cfg, "adminui")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil { // restrict directory
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

func load(path string) (sessionFile, error) {
	var sf sessionFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sessionFile{}, nil
		}
		return sf, err
	}
	if err := json.Unmarshal(data, &sf); err != nil {
		return sf, err
	}
	return sf, nil
}

func save(path string, sf sessionFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func masterKey() ([]byte, error) {
	user := os.Getenv("USER")
	base := fmt.Sprintf("adminui-%s-%s", runtime.GOOS, user)
	hash := sha256.Sum256([]byte(base))
	return hash[:], nil
}

func encrypt(plain []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	body := ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM() (cipher.AEAD, error) {
	key, err := masterKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

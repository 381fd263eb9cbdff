// Package storage реализует долговременное локальное хранилище клиента:
// bearer-токен, снимок профиля пользователя и пользовательские настройки.
// Данные лежат в JSON-файлах в каталоге клиента; гарантия сохранности
// не сильнее самого носителя — внешняя очистка каталога допустима и
// обрабатывается как отсутствие данных.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipwatch/ip-monitor-client/internal/lib/token"
	"github.com/ipwatch/ip-monitor-client/internal/models"
)

// Имена файлов фиксированные, как и ключи хранилища в исходном клиенте.
const (
	credentialsFile = "credentials.json"
	prefsFile       = "preferences.json"
)

// ErrNoCredentials возвращается, когда сохранённый токен отсутствует.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials — сохранённая пара токен + снимок профиля.
// Снимок не авторитетен, источником истины остаётся бэкенд.
type Credentials struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

// Preferences — настройки уровня интерфейса.
type Preferences struct {
	Theme       string `json:"theme"`
	SearchCount int    `json:"search_count"`
}

// Store — файловое хранилище в заданном каталоге.
type Store struct {
	dir string
}

// New создаёт хранилище, при необходимости создавая каталог.
func New(dir string) (*Store, error) {
	const op = "storage.New"
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{dir: dir}, nil
}

// Save записывает токен и снимок профиля.
func (s *Store) Save(tokenStr string, user *models.User) error {
	const op = "storage.Save"
	if err := s.writeJSON(credentialsFile, Credentials{Token: tokenStr, User: user}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Read возвращает сохранённые учётные данные.
// Отсутствие файла — это ErrNoCredentials, не ошибка ввода-вывода.
func (s *Store) Read() (*Credentials, error) {
	const op = "storage.Read"
	var creds Credentials
	if err := s.readJSON(credentialsFile, &creds); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if creds.Token == "" {
		return nil, ErrNoCredentials
	}
	return &creds, nil
}

// Clear удаляет сохранённые учётные данные. Повторный вызов безопасен.
func (s *Store) Clear() error {
	const op = "storage.Clear"
	err := os.Remove(filepath.Join(s.dir, credentialsFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsExpired сообщает, истёк ли сохранённый токен.
// Отсутствующий или нечитаемый токен считается истёкшим.
func (s *Store) IsExpired() bool {
	creds, err := s.Read()
	if err != nil {
		return true
	}
	return token.IsExpired(creds.Token)
}

// ReadPreferences возвращает настройки интерфейса.
// Отсутствие файла даёт нулевые настройки без ошибки.
func (s *Store) ReadPreferences() (Preferences, error) {
	const op = "storage.ReadPreferences"
	var prefs Preferences
	if err := s.readJSON(prefsFile, &prefs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Preferences{}, nil
		}
		return Preferences{}, fmt.Errorf("%s: %w", op, err)
	}
	return prefs, nil
}

// SavePreferences записывает настройки интерфейса.
func (s *Store) SavePreferences(prefs Preferences) error {
	const op = "storage.SavePreferences"
	if err := s.writeJSON(prefsFile, prefs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IncrementSearchCount увеличивает счётчик выполненных поисков.
func (s *Store) IncrementSearchCount() (int, error) {
	const op = "storage.IncrementSearchCount"
	prefs, err := s.ReadPreferences()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	prefs.SearchCount++
	if err := s.SavePreferences(prefs); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return prefs.SearchCount, nil
}

func (s *Store) writeJSON(name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, name), data, 0o600)
}

func (s *Store) readJSON(name string, dst any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

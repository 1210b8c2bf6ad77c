// Package staging реализует промежуточное хранилище одного прогона экспорта.
// Таблица создается в начале загрузки и удаляется вместе с файлом по
// завершении прогона независимо от исхода: хранилище существует только для
// ограничения пикового потребления памяти на очень больших историях и
// никогда не является постоянным состоянием.
package staging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"telegram-chat-export/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	message_id     INTEGER PRIMARY KEY,
	grouped_id     INTEGER NOT NULL DEFAULT 0,
	date           INTEGER NOT NULL,
	sender         TEXT NOT NULL,
	text           TEXT NOT NULL DEFAULT '',
	reply_to       TEXT,
	forwarded_from TEXT,
	media_path     TEXT NOT NULL DEFAULT '',
	media_kind     TEXT NOT NULL DEFAULT '',
	placeholder    TEXT NOT NULL DEFAULT '',
	action_text    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date, message_id);
`

const sqliteParams = "?_journal_mode=WAL&_busy_timeout=5000"

// Store — одноразовое SQLite-хранилище канонических записей.
// Эксклюзивно для одного прогона загрузки, конкурентный доступ не нужен.
type Store struct {
	db   *sql.DB
	path string
}

// Open создает (или открывает) файл хранилища и таблицу сообщений.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+sqliteParams)
	if err != nil {
		return nil, fmt.Errorf("open staging db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping staging db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create staging schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path возвращает путь к файлу хранилища.
func (s *Store) Path() string {
	return s.path
}

// InsertBatch записывает пакет канонических записей одной транзакцией.
// На этапе загрузки каждая запись несет не больше одного медиафайла;
// альбомы сворачиваются позже, на этапе агрегации.
func (s *Store) InsertBatch(msgs []*domain.CanonicalMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO messages
		(message_id, grouped_id, date, sender, text, reply_to, forwarded_from, media_path, media_kind, placeholder, action_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		replyJSON, err := marshalOptional(m.ReplyTo)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal reply for message %d: %w", m.ID, err)
		}
		fwdJSON, err := marshalOptional(m.ForwardedFrom)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal forward for message %d: %w", m.ID, err)
		}

		var mediaPath, mediaKind string
		if len(m.Media) > 0 {
			mediaPath = m.Media[0].Path
			mediaKind = string(m.Media[0].Kind)
		}

		if _, err := stmt.Exec(
			m.ID, m.GroupID, m.Date.UTC().Unix(), m.Sender, m.Text,
			replyJSON, fwdJSON, mediaPath, mediaKind, m.Placeholder, m.ActionText,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert message %d: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// Count возвращает число записанных сообщений.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// ForEachByDate перебирает записи в порядке возрастания даты (при равенстве
// дат — по идентификатору сообщения). Ошибка fn прерывает обход.
func (s *Store) ForEachByDate(fn func(*domain.CanonicalMessage) error) error {
	rows, err := s.db.Query(`SELECT message_id, grouped_id, date, sender, text,
		reply_to, forwarded_from, media_path, media_kind, placeholder, action_text
		FROM messages ORDER BY date ASC, message_id ASC`)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m         domain.CanonicalMessage
			unix      int64
			replyJSON sql.NullString
			fwdJSON   sql.NullString
			mediaPath string
			mediaKind string
		)
		if err := rows.Scan(&m.ID, &m.GroupID, &unix, &m.Sender, &m.Text,
			&replyJSON, &fwdJSON, &mediaPath, &mediaKind, &m.Placeholder, &m.ActionText); err != nil {
			return fmt.Errorf("scan message: %w", err)
		}
		m.Date = time.Unix(unix, 0).UTC()

		if replyJSON.Valid && replyJSON.String != "" {
			var snap domain.ReplySnapshot
			if err := json.Unmarshal([]byte(replyJSON.String), &snap); err != nil {
				return fmt.Errorf("unmarshal reply for message %d: %w", m.ID, err)
			}
			m.ReplyTo = &snap
		}
		if fwdJSON.Valid && fwdJSON.String != "" {
			var snap domain.ForwardSnapshot
			if err := json.Unmarshal([]byte(fwdJSON.String), &snap); err != nil {
				return fmt.Errorf("unmarshal forward for message %d: %w", m.ID, err)
			}
			m.ForwardedFrom = &snap
		}
		if mediaPath != "" {
			m.Media = []domain.MediaItem{{Path: mediaPath, Kind: domain.MediaKind(mediaKind)}}
		}

		if err := fn(&m); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close закрывает соединение с базой.
func (s *Store) Close() error {
	return s.db.Close()
}

// Destroy закрывает хранилище и удаляет его файл. Вызывается в отложенной
// очистке прогона и должен быть безопасен при повторном вызове.
func (s *Store) Destroy() error {
	_ = s.db.Close()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staging db: %w", err)
	}
	// WAL-файлы могут пережить соединение.
	_ = os.Remove(s.path + "-wal")
	_ = os.Remove(s.path + "-shm")
	return nil
}

func marshalOptional(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case *domain.ReplySnapshot:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *domain.ForwardSnapshot:
		if t == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

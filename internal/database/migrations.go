package database

import (
	"context"
	"database/sql"
	"fmt"
)

// The schema is kept in two dialects.  Column names and constraints are the
// same; only types and auto-increment syntax differ.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		phone         TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('CUSTOMER', 'ADMIN')),
		created_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS movies (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		title            TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
		genre            TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		seat_count INTEGER NOT NULL CHECK (seat_count > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS seats (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		number  INTEGER NOT NULL,
		state   TEXT NOT NULL DEFAULT 'FREE' CHECK (state IN ('FREE', 'OCCUPIED')),
		UNIQUE (room_id, number)
	)`,
	`CREATE TABLE IF NOT EXISTS showtimes (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		movie_id  INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		room_id   INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		starts_at TEXT NOT NULL,
		ends_at   TEXT NOT NULL,
		CHECK (ends_at > starts_at)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_showtimes_room_start ON showtimes (room_id, starts_at)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		showtime_id INTEGER NOT NULL REFERENCES showtimes(id) ON DELETE CASCADE,
		seat_id     INTEGER NOT NULL REFERENCES seats(id) ON DELETE CASCADE,
		price_cents INTEGER NOT NULL CHECK (price_cents >= 0),
		UNIQUE (showtime_id, seat_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id          INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		sold_at          TEXT NOT NULL,
		discount_percent REAL NOT NULL DEFAULT 0 CHECK (discount_percent >= 0 AND discount_percent <= 100),
		total_cents      INTEGER NOT NULL CHECK (total_cents >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS sale_tickets (
		sale_id   INTEGER NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		ticket_id INTEGER NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
		PRIMARY KEY (sale_id, ticket_id)
	)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name          VARCHAR(100) NOT NULL,
		email         VARCHAR(191) NOT NULL UNIQUE,
		phone         VARCHAR(32) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('CUSTOMER', 'ADMIN') NOT NULL,
		created_at    DATETIME NOT NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS movies (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title            VARCHAR(200) NOT NULL,
		duration_minutes INT NOT NULL CHECK (duration_minutes > 0),
		genre            VARCHAR(100) NOT NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		seat_count INT NOT NULL CHECK (seat_count > 0)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS seats (
		id      BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room_id BIGINT UNSIGNED NOT NULL,
		number  INT NOT NULL,
		state   ENUM('FREE', 'OCCUPIED') NOT NULL DEFAULT 'FREE',
		UNIQUE KEY uq_seats_room_number (room_id, number),
		CONSTRAINT fk_seats_room FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS showtimes (
		id        BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		movie_id  BIGINT UNSIGNED NOT NULL,
		room_id   BIGINT UNSIGNED NOT NULL,
		starts_at DATETIME NOT NULL,
		ends_at   DATETIME NOT NULL,
		KEY idx_showtimes_room_start (room_id, starts_at),
		CONSTRAINT chk_showtimes_interval CHECK (ends_at > starts_at),
		CONSTRAINT fk_showtimes_movie FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE,
		CONSTRAINT fk_showtimes_room FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		showtime_id BIGINT UNSIGNED NOT NULL,
		seat_id     BIGINT UNSIGNED NOT NULL,
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		UNIQUE KEY uq_tickets_showtime_seat (showtime_id, seat_id),
		CONSTRAINT fk_tickets_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes(id) ON DELETE CASCADE,
		CONSTRAINT fk_tickets_seat FOREIGN KEY (seat_id) REFERENCES seats(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS sales (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id          BIGINT UNSIGNED NOT NULL,
		sold_at          DATETIME NOT NULL,
		discount_percent DECIMAL(5,2) NOT NULL DEFAULT 0,
		total_cents      BIGINT NOT NULL CHECK (total_cents >= 0),
		CONSTRAINT chk_sales_discount CHECK (discount_percent BETWEEN 0 AND 100),
		CONSTRAINT fk_sales_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS sale_tickets (
		sale_id   BIGINT UNSIGNED NOT NULL,
		ticket_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (sale_id, ticket_id),
		CONSTRAINT fk_sale_tickets_sale FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE CASCADE,
		CONSTRAINT fk_sale_tickets_ticket FOREIGN KEY (ticket_id) REFERENCES tickets(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
}

// Migrate creates every table that does not exist yet.  It is safe to run
// on each start.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case "sqlite":
		stmts = sqliteSchema
	case "mysql":
		stmts = mysqlSchema
	default:
		return fmt.Errorf("no schema for driver %q", driver)
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Meteonode
// Copyright (c) 2026 The Meteonode Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Meteonode.
//
// Meteonode is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Meteonode is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Meteonode.  If not, see <http://www.gnu.org/licenses/>.

// Package credentials persists the Wi-Fi network identity entered through
// the configuration portal.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
	bolterrors "go.etcd.io/bbolt/errors"
)

const (
	Bucket = "wifi"

	keySSID = "ssid"
	keyPass = "pass"

	MaxSSIDLen     = 32
	MaxPasswordLen = 64
)

var ErrInvalid = errors.New("invalid credentials")

type Credentials struct {
	SSID     string `validate:"required,maxbytes=32"`
	Password string `validate:"maxbytes=64"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// built-in max counts runes; SSIDs are limited in bytes
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

func (c Credentials) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Store keeps one Credentials record in a bolt database.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close bolt database: %w", err)
	}
	return nil
}

// Load returns the stored credentials. ok is false when nothing usable is
// stored: no bucket, a missing field or an empty SSID.
func (s *Store) Load() (creds Credentials, ok bool, err error) {
	err = s.db.View(func(txn *bolt.Tx) error {
		b := txn.Bucket([]byte(Bucket))
		if b == nil {
			return nil
		}

		ssid, hasSSID := lookup(b, keySSID)
		pass, hasPass := lookup(b, keyPass)
		if !hasSSID || !hasPass {
			return nil
		}

		// values are only valid inside the transaction
		creds = Credentials{SSID: string(ssid), Password: string(pass)}
		ok = creds.SSID != ""
		return nil
	})
	if err != nil {
		return Credentials{}, false, fmt.Errorf("failed to view bolt database: %w", err)
	}

	if ok {
		log.Debug().Msgf("loaded credentials for ssid %q", creds.SSID)
	} else {
		creds = Credentials{}
	}
	return creds, ok, nil
}

// lookup tells a missing key apart from one holding an empty value.
func lookup(b *bolt.Bucket, key string) ([]byte, bool) {
	k, v := b.Cursor().Seek([]byte(key))
	if !bytes.Equal(k, []byte(key)) {
		return nil, false
	}
	return v, true
}

// Save overwrites both fields in a single transaction.
func (s *Store) Save(creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *bolt.Tx) error {
		b, err := txn.CreateBucketIfNotExists([]byte(Bucket))
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		if err := b.Put([]byte(keySSID), []byte(creds.SSID)); err != nil {
			return fmt.Errorf("failed to put ssid: %w", err)
		}
		if err := b.Put([]byte(keyPass), []byte(creds.Password)); err != nil {
			return fmt.Errorf("failed to put pass: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update bolt database: %w", err)
	}

	log.Info().Msgf("saved credentials for ssid %q", creds.SSID)
	return nil
}

// Clear forgets stored credentials so the next boot opens the portal.
func (s *Store) Clear() error {
	err := s.db.Update(func(txn *bolt.Tx) error {
		err := txn.DeleteBucket([]byte(Bucket))
		if errors.Is(err, bolterrors.ErrBucketNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	log.Info().Msg("cleared stored credentials")
	return nil
}

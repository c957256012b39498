package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"plankton/pkg/config"
	"plankton/pkg/location"
	"plankton/pkg/log"
	"plankton/pkg/objectstore/sqlite"
	"plankton/pkg/transaction"
)

var objectCmd = &cobra.Command{
	Use:   "object",
	Short: "Store and remove objects in the local object store",
}

var objectPutCmd = &cobra.Command{
	Use:   "put [account/container/object] [file]",
	Short: "Store a file's hash and size as a new object version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := location.FromPath(args[0])
		if err != nil {
			return err
		}
		hash, size, err := hashFile(args[1])
		if err != nil {
			return err
		}

		return withStore(func(conn *sqlite.Backend) error {
			id, err := transaction.Run(conn, func() (string, error) {
				return conn.PutObject(user, loc.Account, loc.Container, loc.Name, hash, size)
			})
			if err != nil {
				return fmt.Errorf("failed to put object: %w", err)
			}
			log.Info().Str("location", loc.String()).Str("uuid", id).Int64("size", size).Msg("Object stored")
			fmt.Println(id)
			return nil
		})
	},
}

var objectDeleteCmd = &cobra.Command{
	Use:   "delete [account/container/object]",
	Short: "Remove the current version of an object, keeping its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := location.FromPath(args[0])
		if err != nil {
			return err
		}

		return withStore(func(conn *sqlite.Backend) error {
			err := transaction.Do(conn, func() error {
				return conn.DeleteObject(user, loc.Account, loc.Container, loc.Name)
			})
			if err != nil {
				return fmt.Errorf("failed to delete object: %w", err)
			}
			log.Info().Str("location", loc.String()).Msg("Object deleted")
			return nil
		})
	},
}

// withStore opens the configured object store for the duration of fn.
func withStore(fn func(*sqlite.Backend) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Backend != config.BackendPithos {
		return fmt.Errorf("objects require the %q backend, configured backend is %q", config.BackendPithos, cfg.Backend)
	}

	store, err := sqlite.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	conn := store.Connect()
	defer func() { _ = conn.Close() }()

	return fn(conn)
}

// hashFile returns the hex SHA-256 and size of the file at path.
func hashFile(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	hasher := sha256.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}

func init() {
	objectCmd.AddCommand(objectPutCmd)
	objectCmd.AddCommand(objectDeleteCmd)
}

package store_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/transcript/inmemory"
	"github.com/papercomputeco/agentchat/pkg/transcript/sqlite"
	"github.com/papercomputeco/agentchat/pkg/transcript/store"
)

var _ = Describe("Open", func() {
	ctx := context.Background()

	It("opens the in-memory driver", func() {
		d, err := store.Open(ctx, config.StorageConfig{Driver: config.StorageMemory}, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("defaults the sqlite path into the dot directory", func() {
		dir := GinkgoT().TempDir()
		d, err := store.Open(ctx, config.StorageConfig{Driver: config.StorageSQLite}, dir)
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		Expect(d).To(BeAssignableToTypeOf(&sqlite.Driver{}))
		_, err = os.Stat(filepath.Join(dir, store.DefaultSQLiteFile))
		Expect(err).NotTo(HaveOccurred())
	})

	It("uses an explicit sqlite path", func() {
		path := filepath.Join(GinkgoT().TempDir(), "custom.db")
		d, err := store.Open(ctx, config.StorageConfig{SQLitePath: path}, "")
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		_, err = os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a DSN for postgres", func() {
		_, err := store.Open(ctx, config.StorageConfig{Driver: config.StoragePostgres}, "")
		Expect(err).To(MatchError(ContainSubstring("postgres_dsn")))
	})

	It("rejects unknown drivers", func() {
		_, err := store.Open(ctx, config.StorageConfig{Driver: "mongo"}, "")
		Expect(err).To(HaveOccurred())
	})
})

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eslsoft/wordladder/internal/app"
	"github.com/eslsoft/wordladder/internal/infrastructure/database"
	"github.com/eslsoft/wordladder/internal/usecase/backup"
)

// openStorage builds the storage graph and makes sure the schema exists.
func openStorage(ctx context.Context) (*app.Storage, func(), error) {
	storage, cleanup, err := app.InitializeStorage()
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	if err := database.EnsureSchema(ctx, storage.DB); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return storage, cleanup, nil
}

func newBackupService(storage *app.Storage, batchSize int) *backup.Service {
	return backup.NewService(
		storage.Catalog,
		storage.Progress,
		storage.Sessions,
		backup.WithBatchSize(batchSize),
	)
}

func tablesFromConfig(key string) []string {
	return normalizeTables(viper.GetStringSlice(key))
}

func normalizeTables(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			result = append(result, strings.ToLower(name))
		}
	}
	if len(result) == 0 {
		return nil
	}
	return lo.Uniq(result)
}

func bindFlagToViper(key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}

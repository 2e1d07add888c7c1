package seeders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lab-workflow/internal/repositories"
	apperrors "lab-workflow/pkg/errors"
)

// SeedStageSLAConfigs заполняет нормативы этапов. Уже настроенные этапы
// не трогаются, если overwrite = false.
func SeedStageSLAConfigs(ctx context.Context, repo repositories.StageSLAConfigRepositoryInterface, overwrite bool) (int, error) {
	log.Println("  - Наполнение нормативов этапов...")
	written := 0
	for _, cfg := range repositories.DefaultStageSLAConfigs(time.Now().UTC()) {
		if !overwrite {
			_, err := repo.FindConfig(ctx, cfg.Stage)
			if err == nil {
				continue
			}
			if !errors.Is(err, apperrors.ErrNotFound) {
				return written, fmt.Errorf("проверка норматива %s: %w", cfg.Stage, err)
			}
		}
		if err := repo.UpsertConfig(ctx, cfg); err != nil {
			return written, err
		}
		written++
	}
	log.Printf("    - Записано нормативов: %d", written)
	return written, nil
}

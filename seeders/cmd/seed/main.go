package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"lab-workflow/internal/repositories"
	"lab-workflow/internal/services"
	"lab-workflow/pkg/config"
	"lab-workflow/pkg/database/postgresql"
	"lab-workflow/seeders"
)

func main() {
	log.Println("======================================================")
	log.Println("       🌱 СИСТЕМА СИДЕРОВ (Наполнение БД)           ")
	log.Println("======================================================")

	runSLA := flag.Bool("sla", false, "Заполнить нормативы этапов")
	overwrite := flag.Bool("overwrite", false, "Перезаписать уже настроенные нормативы")
	runDemo := flag.Bool("demo", false, "Создать демонстрационные заказы")
	runAll := flag.Bool("all", false, "Запустить все сидеры (эквивалентно -sla -demo)")
	flag.Parse()

	if !*runSLA && !*runDemo && !*runAll {
		log.Println("❌ Не выбран ни один сидер для запуска.")
		log.Println("")
		log.Println("Доступные флаги:")
		flag.PrintDefaults()
		log.Println("")
		log.Println("Примеры использования:")
		log.Println("  go run ./seeders/cmd/seed -sla")
		log.Println("  go run ./seeders/cmd/seed -all")
		log.Println("======================================================")
		return
	}

	ctx := context.Background()
	cfg := config.New()
	logger := zap.NewNop()

	dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к БД: %v", err)
	}
	defer dbPool.Close()
	if err := postgresql.Migrate(ctx, dbPool); err != nil {
		log.Fatalf("❌ Ошибка миграций: %v", err)
	}

	if *runAll || *runSLA {
		if _, err := seeders.SeedStageSLAConfigs(ctx, repositories.NewStageSLAConfigRepository(dbPool), *overwrite); err != nil {
			log.Fatalf("❌ Ошибка наполнения нормативов: %v", err)
		}
		log.Println("======================================================")
	}

	if *runAll || *runDemo {
		orders := repositories.NewLabOrderRepository(dbPool, repositories.NewTxManager(dbPool), logger)
		if err := seeders.SeedDemoOrders(ctx, services.NewLabWorkflowService(orders, nil, logger)); err != nil {
			log.Fatalf("❌ Ошибка создания демо-заказов: %v", err)
		}
		log.Println("======================================================")
	}

	log.Println("✅ Все указанные операции сидирования успешно завершены.")
	log.Println("======================================================")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"zocheckout.com/app/internal/config"
	"zocheckout.com/app/internal/modules/checkoutstate"
)

func main() {
	configPath := flag.String("config", "", "optional yaml config file")
	purge := flag.Duration("purge-older-than", 0, "also delete checkout states untouched for this long (0 = keep)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.State.MySQLDSN == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(cfg.State.MySQLDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&checkoutstate.StateRow{}); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	fmt.Println("✓ checkout_states table is up to date")

	if *purge > 0 {
		n, err := checkoutstate.NewGormRepo(db).PurgeBefore(context.Background(), time.Now().Add(-*purge))
		if err != nil {
			log.Fatalf("purge failed: %v", err)
		}
		fmt.Printf("✓ purged %d stale checkout states\n", n)
	}
}

// Command main runs the database seeder for RecipeShare.
package main

import (
	"context"
	"flag"
	"log"

	"recipeshare/internal/config"
	"recipeshare/internal/database"
	"recipeshare/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	fixtures := flag.String("fixtures", "", "YAML fixture file (defaults to the built-in sample set)")
	numUsers := flag.Int("users", 0, "Number of fake users to create")
	numRecipes := flag.Int("recipes", 0, "Number of fake recipes to create")
	numRatings := flag.Int("ratings", 3, "Ratings per fake recipe")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	_ = godotenv.Load()

	log.Println("Database Seeder")
	log.Println("===============")
	log.Printf("Target: fixtures=%q, %d fake users, %d fake recipes, %d ratings each, clean=%v",
		*fixtures, *numUsers, *numRecipes, *numRatings, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		FixturePath: *fixtures,
		FakeUsers:   *numUsers,
		FakeRecipes: *numRecipes,
		FakeRatings: *numRatings,
		ShouldClean: *shouldClean,
	})
	if _, err := s.Run(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("All done! Your database is now populated with test data.")
	log.Println("Sample users have the password: password123")
}

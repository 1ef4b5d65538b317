package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/matterdesk/matterdesk/internal/config"
	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/internal/services"
)

// Recomputes review_due_at for matters still awaiting review, using the
// configured business calendar. By default only matters without a due date
// are touched; -all recomputes every open review (after a holiday set change).
func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	all := flag.Bool("all", false, "recompute due dates that are already set")
	dryRun := flag.Bool("dry-run", false, "print changes without writing them")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := models.InitDB(&cfg.Database); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := models.GetDB()
	calendar := services.NewBusinessCalendar(cfg.Calendar.Country)

	query := db.Where("status IN ?", []models.MatterStatus{models.MatterPendingReview, models.MatterInReview})
	if !*all {
		query = query.Where("review_due_at IS NULL")
	}

	var matters []models.Matter
	if err := query.Order("id ASC").Find(&matters).Error; err != nil {
		log.Fatalf("Failed to query matters: %v", err)
	}

	fmt.Printf("Calendar: %s, matters to process: %d\n\n", calendar.Country(), len(matters))
	fmt.Printf("%-6s %-20s %-10s %-20s %-20s\n", "ID", "Number", "Tier", "Old due", "New due")
	fmt.Println("------------------------------------------------------------------------------")

	updated := 0
	for _, m := range matters {
		due := calendar.ReviewDueAt(m.Tier, m.CreatedAt)
		old := "-"
		if m.ReviewDueAt != nil {
			if m.ReviewDueAt.Equal(due) {
				continue
			}
			old = m.ReviewDueAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-6d %-20s %-10s %-20s %-20s\n", m.ID, m.MatterNumber, m.Tier, old, due.Format("2006-01-02 15:04"))

		if *dryRun {
			continue
		}
		// Status guard: a matter that left review since the query keeps its old value.
		result := db.Model(&models.Matter{}).
			Where("id = ? AND status = ?", m.ID, m.Status).
			Update("review_due_at", due)
		if result.Error != nil {
			log.Fatalf("Failed to update matter %d: %v", m.ID, result.Error)
		}
		updated += int(result.RowsAffected)
	}

	fmt.Println("")
	if *dryRun {
		fmt.Println("Dry run, nothing written.")
		return
	}
	fmt.Printf("Updated %d matters.\n", updated)
}

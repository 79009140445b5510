package bootstrap

import (
	"log"
	"time"

	"bayanika.app/backend/internal/entity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Activity{},
		&entity.Participation{},
		&entity.ProofOfWork{},
		&entity.Reward{},
		&entity.Badge{},
		&entity.UserBadge{},
		&entity.Notification{},
	)
}

func SeedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", "admin@bayanika.com").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	password := "admin123"
	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := entity.User{
		FirstName:    "Admin",
		LastName:     "Bayanika",
		Username:     "admin",
		Email:        "admin@bayanika.com",
		PasswordHash: string(hashedPasswordBytes),
		Role:         entity.RoleAdmin,
		Level:        1,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Println("✅ Admin user seeded successfully")
	log.Println("   Email: admin@bayanika.com")
	log.Println("   Password: admin123")
	log.Println("⚠️  IMPORTANT: Change the password after first login!")

	return nil
}

func SeedBadges(db *gorm.DB) error {
	starterBadges := []entity.Badge{
		{
			Name:        "First Step",
			Description: "Completed your first community activity.",
			Category:    entity.BadgeCategoryFirstActivity,
			Rarity:      "common",
		},
		{
			Name:                    "Helping Hand",
			Description:             "Earned 100 Bayanihan Points.",
			Category:                entity.BadgeCategoryPoints,
			Rarity:                  "common",
			BayanihanPointsRequired: 100,
		},
		{
			Name:                    "Community Pillar",
			Description:             "Earned 500 Bayanihan Points.",
			Category:                entity.BadgeCategoryPoints,
			Rarity:                  "rare",
			BayanihanPointsRequired: 500,
		},
		{
			Name:                    "Bayani",
			Description:             "Earned 1000 Bayanihan Points.",
			Category:                entity.BadgeCategoryPoints,
			Rarity:                  "epic",
			BayanihanPointsRequired: 1000,
		},
		{
			Name:                    "Rising Star",
			Description:             "Reached level 3.",
			Category:                entity.BadgeCategoryLevel,
			Rarity:                  "rare",
			BayanihanPointsRequired: 3,
		},
		{
			Name:                    "Barangay Legend",
			Description:             "Reached level 5.",
			Category:                entity.BadgeCategoryLevel,
			Rarity:                  "legendary",
			BayanihanPointsRequired: 5,
		},
	}

	for _, badge := range starterBadges {
		var count int64
		if err := db.Model(&entity.Badge{}).
			Where("name = ?", badge.Name).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&badge).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func SeedRewards(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.Reward{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	sampleRewards := []entity.Reward{
		{
			Name:        "Jollibee Gift Card - ₱100",
			Description: "Enjoy your favorite Chickenjoy and Jolly Spaghetti with this ₱100 Jollibee gift card!",
			PointsCost:  100,
			Category:    "Food & Drinks",
			Stock:       50,
			IsAvailable: true,
		},
		{
			Name:        "Bayanika T-Shirt",
			Description: "Exclusive Bayanika volunteer t-shirt. Show your Bayanihan spirit!",
			PointsCost:  150,
			Category:    "Merchandise",
			Stock:       30,
			IsAvailable: true,
		},
		{
			Name:        "SM Gift Certificate - ₱200",
			Description: "Shop at any SM store nationwide with this ₱200 gift certificate.",
			PointsCost:  200,
			Category:    "Gift Cards",
			Stock:       25,
			IsAvailable: true,
		},
		{
			Name:        "National Bookstore Voucher - ₱150",
			Description: "Get school supplies, books, or office materials with this voucher.",
			PointsCost:  150,
			Category:    "Books",
			Stock:       40,
			IsAvailable: true,
		},
		{
			Name:        "Reusable Eco Bag Set",
			Description: "Set of 3 durable eco-friendly bags for your daily needs.",
			PointsCost:  75,
			Category:    "Merchandise",
			Stock:       60,
			IsAvailable: true,
		},
		{
			Name:        "Free Haircut Voucher",
			Description: "Get a free haircut at participating salons in your barangay.",
			PointsCost:  120,
			Category:    "Services",
			Stock:       15,
			IsAvailable: true,
		},
	}

	for _, reward := range sampleRewards {
		if err := db.Create(&reward).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d rewards", len(sampleRewards))
	return nil
}

func SeedActivities(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.Activity{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	sampleActivities := []entity.Activity{
		{
			Title:           "Community Clean-Up Drive",
			Description:     "Join us in cleaning up our barangay streets and parks. Bring your own gloves and trash bags. Let's make our community cleaner together!",
			Type:            "volunteer",
			Location:        stringPtr("Barangay San Jose"),
			StartDate:       now.Add(7 * 24 * time.Hour),
			EndDate:         now.Add(7*24*time.Hour + 4*time.Hour),
			BayanihanPoints: 50,
			MaxParticipants: 30,
			Status:          entity.ActivityStatusUpcoming,
			Category:        "Environment",
		},
		{
			Title:           "Food Distribution for Seniors",
			Description:     "Help distribute food packages to senior citizens in our community. Volunteers will assist in packing and delivering meals to elderly residents.",
			Type:            "volunteer",
			Location:        stringPtr("Barangay Community Center"),
			StartDate:       now.Add(3 * 24 * time.Hour),
			EndDate:         now.Add(3*24*time.Hour + 3*time.Hour),
			BayanihanPoints: 75,
			MaxParticipants: 20,
			Status:          entity.ActivityStatusUpcoming,
			Category:        "Social Welfare",
		},
		{
			Title:           "Tree Planting Activity",
			Description:     "Be part of our reforestation effort! We'll be planting 100 trees in the community park. Seedlings and tools will be provided.",
			Type:            "volunteer",
			Location:        stringPtr("Community Park"),
			StartDate:       now.Add(14 * 24 * time.Hour),
			EndDate:         now.Add(14*24*time.Hour + 5*time.Hour),
			BayanihanPoints: 100,
			MaxParticipants: 50,
			Status:          entity.ActivityStatusUpcoming,
			Category:        "Environment",
		},
		{
			Title:           "Youth Tutoring Program",
			Description:     "Share your knowledge! Tutor elementary students in Math and English. Sessions are held twice a week for one month.",
			Type:            "volunteer",
			Location:        stringPtr("Barangay Hall"),
			StartDate:       now.Add(5 * 24 * time.Hour),
			EndDate:         now.Add(35 * 24 * time.Hour),
			BayanihanPoints: 200,
			MaxParticipants: 15,
			Status:          entity.ActivityStatusUpcoming,
			Category:        "Education",
		},
		{
			Title:           "Disaster Preparedness Training",
			Description:     "Learn essential disaster response skills. Training includes first aid, emergency evacuation procedures, and basic rescue operations.",
			Type:            "event",
			Location:        stringPtr("Municipal Gym"),
			StartDate:       now.Add(10 * 24 * time.Hour),
			EndDate:         now.Add(10*24*time.Hour + 6*time.Hour),
			BayanihanPoints: 150,
			MaxParticipants: 40,
			Status:          entity.ActivityStatusUpcoming,
			Category:        "Disaster Response",
		},
		{
			Title:           "Medical Mission",
			Description:     "Free medical check-up and consultation for community members. Medical professionals and volunteers needed for registration and crowd management.",
			Type:            "event",
			Location:        stringPtr("Barangay Health Center"),
			StartDate:       now.Add(21 * 24 * time.Hour),
			EndDate:         now.Add(21*24*time.Hour + 8*time.Hour),
			BayanihanPoints: 120,
			MaxParticipants: 25,
			Status:          entity.ActivityStatusUpcoming,
			Category:        "Health",
		},
	}

	for _, activity := range sampleActivities {
		if err := db.Create(&activity).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d activities", len(sampleActivities))
	return nil
}

func stringPtr(s string) *string {
	return &s
}

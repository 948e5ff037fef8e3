package main

import (
	"time"

	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/config"
	"github.com/rafael-frs-a/gomemes/models"
	"github.com/rafael-frs-a/gomemes/moderation"
	"github.com/rafael-frs-a/gomemes/routes"
	"github.com/rafael-frs-a/gomemes/services"
	"github.com/rafael-frs-a/gomemes/utils"
)

// banStampNotifier pushes a ban stamp to redis so tokens issued before the
// ban stop working immediately. Delivery of the alert email is the outbox
// notifier's job.
type banStampNotifier struct{}

func (banStampNotifier) NotifyBan(tx *gorm.DB, status *models.ModerationStatus, author *models.User, outcome moderation.BanOutcome) error {
	utils.StampUserBanned(author.ID, outcome.Until)
	return nil
}

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(
		&models.User{},
		&models.Post{},
		&models.PostTag{},
		&models.PostDenialReason{},
		&models.ModerationStatus{},
		&models.Email{},
	)

	policy := moderation.BanPolicy{
		PermanentBanCount:    cfg.PermanentBanCount,
		TemporaryBanDuration: time.Duration(cfg.TemporaryBanSeconds) * time.Second,
	}
	notifier := moderation.Notifiers{
		moderation.OutboxNotifier{AppName: cfg.AppName},
		banStampNotifier{},
	}
	manager := moderation.NewManager(db, policy, notifier)
	catalog := moderation.NewCatalog(db)

	services.StartUserDeleter(db, time.Duration(cfg.UserDeleterInterval)*time.Second)
	services.StartEmailSender(db, time.Duration(cfg.EmailSenderInterval)*time.Second)

	r := routes.SetupRouter(db, manager, catalog)

	addr := ":" + cfg.AppPort
	utils.Sugar.Infof("%s listening on %s", cfg.AppName, addr)
	if err := utils.GraceServer(addr, r); err != nil {
		utils.Sugar.Fatalf("server exited: %v", err)
	}
}

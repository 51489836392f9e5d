package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tcg_inventory_v1/internal/config"
	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/internal/repository"
	"tcg_inventory_v1/internal/service"
	"tcg_inventory_v1/pkg/database"
	"tcg_inventory_v1/pkg/logger"
	"tcg_inventory_v1/pkg/net"
)

// app 命令共享的依赖
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	inventory *service.InventoryAPIService
	taxonomy  *service.TaxonomyService
}

func newApp(cfg *config.Config) (*app, error) {
	log := logger.New(cfg.Environment)

	db, err := database.InitDB(database.Options{
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
		Logger: log,
	}, &model.TaxonomySnapshot{})
	if err != nil {
		return nil, err
	}

	dispatcher := net.NewDispatcher(net.DispatcherConfig{
		BaseURL:       cfg.InventoryAPIBaseURL,
		Timeout:       cfg.HTTPTimeout,
		RatePerSecond: cfg.RequestRatePerSec,
		Burst:         cfg.RequestBurst,
		Resilience:    net.DefaultResilienceConfig(),
	}, net.NewContextCredentials(cfg.InventoryAPIToken), log)

	inventory := service.NewInventoryAPIService(dispatcher, log)
	return &app{
		cfg:       cfg,
		logger:    log,
		inventory: inventory,
		taxonomy:  service.NewTaxonomyService(inventory, repository.NewTaxonomySnapshotRepository(db), cfg.TaxonomyCacheTTL, log),
	}, nil
}

// NewRootCommand 创建命令行入口
func NewRootCommand() *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           "tcg-inventory",
		Short:         "Trading card inventory workbench tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if token, _ := cmd.Flags().GetString("token"); token != "" {
				cfg.InventoryAPIToken = token
			}
			var err error
			a, err = newApp(cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().String("token", "", "Inventory API token (overrides INVENTORY_API_TOKEN)")

	root.AddCommand(
		AspectsCommand(func() *app { return a }),
		UploadCommand(func() *app { return a }),
	)
	return root
}

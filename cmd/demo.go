package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fjod/go_cart/certshop/internal/certificate"
	"github.com/fjod/go_cart/certshop/internal/config"
	"github.com/fjod/go_cart/certshop/internal/delivery"
	"github.com/fjod/go_cart/certshop/internal/domain"
	"github.com/fjod/go_cart/certshop/internal/events"
	"github.com/fjod/go_cart/certshop/internal/logger"
	"github.com/fjod/go_cart/certshop/internal/service"
	"github.com/fjod/go_cart/certshop/internal/session"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "run one checkout against an in-memory session and print the result",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "buyer e-mail; empty skips delivery"},
			&cli.StringFlag{Name: "company", Value: "Demo Company"},
			&cli.StringFlag{Name: "items", Value: "p1=2,p2=1", Usage: "cart as id=qty pairs"},
			&cli.IntFlag{Name: "resends", Usage: "resend every failed delivery up to this many times"},
			&cli.StringFlag{Name: "certificates", Usage: "directory to write certificate PNGs to"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
				return err
			}
			return runDemo(c, cfg)
		},
	}
}

func runDemo(c *cli.Context, cfg *config.Config) error {
	ctx := c.Context

	catalog, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	items, err := parseItems(c.String("items"))
	if err != nil {
		return err
	}

	bus := events.NewBus()
	bus.Subscribe(func(_ context.Context, e events.Event) {
		log.WithFields(log.Fields{"event": e.Type, "purchase_id": e.PurchaseID}).Info(e.Message)
	})

	registry := service.NewRegistry(
		session.NewMemoryProvider(0),
		catalog,
		certificate.NewGenerator(cfg.Delivery.CertWidth, cfg.Delivery.CertHeight),
		delivery.NewSimulator(cfg.Delivery.MinLatency, cfg.Delivery.MaxLatency, cfg.Delivery.SuccessRate, delivery.RandomDice{}),
		bus,
		0,
	)
	defer registry.Close()

	ws, err := registry.Workspace(ctx, uuid.NewString())
	if err != nil {
		return err
	}
	if err := session.SaveProfile(ctx, ws.Store, session.Profile{
		CompanyName: c.String("company"),
		Email:       c.String("email"),
	}); err != nil {
		return err
	}
	for _, item := range items {
		if err := ws.Cart.Add(ctx, item.productID, item.quantity); err != nil {
			return err
		}
	}

	result, err := ws.Checkout.Checkout(ctx)
	if err != nil {
		return err
	}

	for round := 0; round < c.Int("resends"); round++ {
		for _, p := range result.Purchases {
			current, err := ws.Checkout.Purchase(ctx, p.ID)
			if err != nil {
				return err
			}
			if current.EmailSent || current.BuyerEmail == "" || !current.HasCertificate() {
				continue
			}
			if _, err := ws.Checkout.Resend(ctx, p.ID); err != nil {
				return err
			}
		}
	}

	purchases, err := ws.Checkout.Purchases(ctx)
	if err != nil {
		return err
	}
	if dir := c.String("certificates"); dir != "" {
		if err := writeCertificates(dir, purchases); err != nil {
			return err
		}
	}

	// the data URIs are large; print records without them
	for i := range purchases {
		if purchases[i].HasCertificate() {
			purchases[i].Certificate = certificate.FileName(purchases[i].ID)
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"notice":    result.Notice,
		"purchases": purchases,
	})
}

type demoItem struct {
	productID string
	quantity  int
}

func parseItems(raw string) ([]demoItem, error) {
	var items []demoItem
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, qty, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid item %q, want id=qty", pair)
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity in %q: %w", pair, err)
		}
		items = append(items, demoItem{productID: id, quantity: n})
	}
	return items, nil
}

func writeCertificates(dir string, purchases []domain.PurchaseRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, p := range purchases {
		if !p.HasCertificate() {
			continue
		}
		data, err := certificate.DecodeDataURI(p.Certificate)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, certificate.FileName(p.ID))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		log.WithField("path", path).Info("certificate written")
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/config"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/content"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/factory"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/logger"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/repository"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/services"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/txn"
)

func init() {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger schema in the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			_, _ = fmt.Fprintln(os.Stdout, "schema up to date")
			return nil
		},
	}
	rootCmd.AddCommand(migrateCmd)

	var provider, address string
	ownerFlags := func(c *cobra.Command) {
		c.Flags().StringVarP(&provider, "provider", "p", "", "Owner provider (required)")
		c.Flags().StringVarP(&address, "address", "d", "", "Owner address (required)")
		_ = c.MarkFlagRequired("provider")
		_ = c.MarkFlagRequired("address")
	}

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an owner's most recent license against the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return runVerify(cmd.Context(), st, model.Owner{Provider: provider, Address: address}, os.Stdout)
		},
	}
	ownerFlags(verifyCmd)
	rootCmd.AddCommand(verifyCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Decode every block and transaction of an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return runInspect(cmd.Context(), st, model.Owner{Provider: provider, Address: address}, os.Stdout)
		},
	}
	ownerFlags(inspectCmd)
	rootCmd.AddCommand(inspectCmd)
}

// openStore opens and migrates the store named by the TRAIL_* configuration.
func openStore(ctx context.Context) (store.Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	return factory.NewStore(ctx, cfg, logger.NewWithWriter(os.Stderr, "trailctl", "warn"))
}

func runVerify(ctx context.Context, st store.Store, owner model.Owner, out io.Writer) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	svc := services.NewLicenseService(nil, nil, repository.NewReader(st.Ledger()), zerolog.Nop())
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(svc.Verify(ctx, owner))
}

type titleView struct {
	Ptr         string   `json:"ptr"`
	Origin      string   `json:"origin"`
	Tags        []string `json:"tags"`
	Description *string  `json:"description,omitempty"`
}

type licenseView struct {
	Uses        []string   `json:"uses"`
	Terms       string     `json:"terms"`
	Description *string    `json:"description,omitempty"`
	Expiry      *time.Time `json:"expiry,omitempty"`
}

type txnView struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	AssetRef  string       `json:"assetRef"`
	Schema    string       `json:"schema,omitempty"`
	Title     *titleView   `json:"title,omitempty"`
	License   *licenseView `json:"license,omitempty"`
	Error     string       `json:"error,omitempty"`
}

type blockView struct {
	ID           string    `json:"id"`
	Previous     string    `json:"previous,omitempty"`
	Seq          int64     `json:"seq"`
	CreationTime time.Time `json:"creationTime"`
	Transactions []txnView `json:"transactions"`
	Error        string    `json:"error,omitempty"`
}

// runInspect writes one JSON line per block, oldest first.
func runInspect(ctx context.Context, st store.Store, owner model.Owner, out io.Writer) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	md, err := st.Ledger().Metadata(ctx, owner)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, id := range md.Blocks {
		b, err := st.Ledger().Block(ctx, owner, id)
		if err != nil {
			if err := enc.Encode(blockView{ID: id, Error: err.Error()}); err != nil {
				return err
			}
			continue
		}
		view := blockView{ID: b.ID, Previous: b.Previous, Seq: b.Seq, CreationTime: b.CreationTime}
		for i := range b.Transactions {
			view.Transactions = append(view.Transactions, inspectTxn(&b.Transactions[i]))
		}
		if err := enc.Encode(view); err != nil {
			return err
		}
	}
	return nil
}

func inspectTxn(t *model.Transaction) txnView {
	v := txnView{ID: t.ID, Timestamp: t.Timestamp, AssetRef: t.AssetRef}
	frame, err := txn.Contents(t)
	if err != nil {
		v.Error = err.Error()
		return v
	}
	schema, payload, err := content.Deserialize(frame)
	if err != nil {
		v.Error = err.Error()
		return v
	}
	v.Schema = schema.String()
	switch schema {
	case content.SchemaTitle:
		tc, err := content.DecodeTitle(payload)
		if err != nil {
			v.Error = err.Error()
			return v
		}
		tv := &titleView{Ptr: tc.Ptr, Origin: tc.Origin, Description: tc.Description, Tags: []string{}}
		for _, tag := range tc.Tags {
			tv.Tags = append(tv.Tags, tag.Value())
		}
		v.Title = tv
	case content.SchemaLicense:
		lc, err := content.DecodeLicense(payload)
		if err != nil {
			v.Error = err.Error()
			return v
		}
		lv := &licenseView{Terms: lc.Terms, Description: lc.Description, Expiry: lc.Expiry, Uses: []string{}}
		for _, u := range lc.Uses {
			lv.Uses = append(lv.Uses, u.Value())
		}
		v.License = lv
	}
	return v
}

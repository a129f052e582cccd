package main

import (
	"bytes"
	"commute-area-service/internal/adapters/cache"
	"commute-area-service/internal/adapters/repositories"
	"commute-area-service/internal/domain"
	"commute-area-service/internal/services/commute"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// -- init --

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the kv_store and cache tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.requireSQL("init"); err != nil {
			return err
		}

		zap.L().Info("initializing database schema", zap.String("dialect", string(st.Dialect)))
		if err := repositories.InitSchema(ctx, st.DB, st.Dialect); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema ready.")
		return nil
	},
}

// -- show --

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted commute areas",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		raw, ok, err := st.Get(ctx, recordKey(cmd))
		if err != nil {
			return eris.Wrap(err, "show")
		}
		if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), "No areas stored.")
			return nil
		}

		areas, err := commute.DecodeAreas(raw)
		if err != nil {
			return eris.Wrap(err, "show: decode record")
		}
		return writeAreas(cmd.OutOrStdout(), areas, format)
	},
}

// -- import --

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Replace the persisted record with a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		key := recordKey(cmd)
		if err := repositories.SeedFromJSON(ctx, st, key, args[0], validateRecord); err != nil {
			return err
		}
		zap.L().Info("record imported", zap.String("key", key), zap.String("path", args[0]))
		fmt.Fprintln(cmd.OutOrStdout(), "Import complete.")
		return nil
	},
}

// -- clear --

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the persisted record and its colour cursor",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		key := recordKey(cmd)
		for _, k := range []string{key, commute.CursorKey(key)} {
			if err := st.Delete(ctx, k); err != nil {
				return eris.Wrapf(err, "clear: key=%q", k)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Record cleared.")
		return nil
	},
}

// -- prune --

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop expired isochrone cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.requireSQL("prune"); err != nil {
			return err
		}

		ttl := cfg.Cache.TTL()
		if h, _ := cmd.Flags().GetInt("ttl-hours"); h > 0 {
			ttl = time.Duration(h) * time.Hour
		}

		n, err := cache.NewSQLIsochroneCache(st.DB, st.Dialect, ttl).Prune(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries.\n", n)
		return nil
	},
}

func init() {
	showCmd.Flags().String("format", "table", "output format: table, json or yaml")
	pruneCmd.Flags().Int("ttl-hours", 0, "override cache.ttl_hours")
}

func validateRecord(raw []byte) error {
	_, err := commute.DecodeAreas(raw)
	return err
}

// areaView is the flattened form printed by show.
type areaView struct {
	ID            string    `json:"id" yaml:"id"`
	Label         string    `json:"label" yaml:"label"`
	Address       string    `json:"address" yaml:"address"`
	Lat           float64   `json:"lat" yaml:"lat"`
	Lng           float64   `json:"lng" yaml:"lng"`
	Mode          string    `json:"mode" yaml:"mode"`
	TimeInMinutes int       `json:"timeInMinutes" yaml:"timeInMinutes"`
	TravelTime    string    `json:"travelTime" yaml:"travelTime"`
	Color         string    `json:"color" yaml:"color"`
	CreatedAt     time.Time `json:"createdAt" yaml:"createdAt"`
}

func toViews(areas []domain.CommuteArea) []areaView {
	out := make([]areaView, 0, len(areas))
	for _, a := range areas {
		out = append(out, areaView{
			ID:            a.ID,
			Label:         a.Label(),
			Address:       a.Location.Address,
			Lat:           a.Location.Coordinates.Lat,
			Lng:           a.Location.Coordinates.Lng,
			Mode:          string(a.Mode),
			TimeInMinutes: a.TimeInMinutes,
			TravelTime:    domain.FormatTravelTime(a.TimeInMinutes),
			Color:         a.Color,
			CreatedAt:     a.CreatedAt.UTC(),
		})
	}
	return out
}

func writeAreas(w io.Writer, areas []domain.CommuteArea, format string) error {
	switch format {
	case "json":
		// Re-encode the record itself so the output can be imported again.
		raw, err := commute.EncodeAreas(areas)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return eris.Wrap(err, "show: indent json")
		}
		buf.WriteByte('\n')
		_, err = w.Write(buf.Bytes())
		return err

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toViews(areas)); err != nil {
			return eris.Wrap(err, "show: encode yaml")
		}
		return enc.Close()

	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tLABEL\tMODE\tTIME\tCOLOR\tCREATED")
		for _, v := range toViews(areas) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				v.ID, v.Label, v.Mode, v.TravelTime, v.Color, v.CreatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	}
	return eris.Errorf("show: unknown format %q", format)
}

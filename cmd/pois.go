package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/poi-ingest/internal/model"
	"github.com/sells-group/poi-ingest/internal/store"
)

var poisCmd = &cobra.Command{
	Use:   "pois",
	Short: "Inspect ingested POIs",
}

// -- pois show --

var poisShowCmd = &cobra.Command{
	Use:   "show <kvk|id>",
	Short: "Show a POI and its annotations as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return showPOI(ctx, st, os.Stdout, args[0])
	},
}

// -- pois count --

var poisCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count POIs ingested from the filing source",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.CountPOIs(ctx, model.FilingSource)
		if err != nil {
			return eris.Wrap(err, "pois count")
		}
		_, err = fmt.Fprintln(os.Stdout, n)
		return err
	},
}

func init() {
	poisCmd.AddCommand(poisShowCmd)
	poisCmd.AddCommand(poisCountCmd)
	rootCmd.AddCommand(poisCmd)
}

type poiView struct {
	POI         *model.POI         `json:"poi"`
	Annotations []model.Annotation `json:"annotations"`
}

// resolvePOIID accepts either a full identifier or a bare KvK number.
func resolvePOIID(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, ":") {
		return ref
	}
	return model.FilingID(ref)
}

func showPOI(ctx context.Context, st store.Store, out io.Writer, ref string) error {
	id := resolvePOIID(ref)
	poi, err := st.GetPOI(ctx, id)
	if err != nil {
		return eris.Wrap(err, "pois show")
	}
	if poi == nil {
		return eris.Errorf("poi not found: %s", id)
	}
	annotations, err := st.ListAnnotations(ctx, id)
	if err != nil {
		return eris.Wrap(err, "pois show")
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(poiView{POI: poi, Annotations: annotations})
}

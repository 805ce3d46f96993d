package sweep

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/lamim/dialprobe/internal/util"
	"github.com/lamim/dialprobe/pkg/models"
)

const previewLen = 60

// WriteReport prints one row per case followed by the totals
func WriteReport(w io.Writer, summary *models.SweepSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tPARAM\tVALUE\tRESULT\tDETAIL")

	for _, res := range summary.Results {
		param := res.Case.Param
		if param == "" {
			param = "-"
		}

		status := "ok"
		detail := ""
		if res.Success {
			detail = fmt.Sprintf("%d choice(s): %s", res.Result.N, util.Preview(res.Result.Content(), previewLen))
		} else {
			status = res.ErrorKind
			detail = util.Preview(res.Error, previewLen)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", res.Case.Model, param, formatValue(res.Case), status, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d case(s): %d succeeded, %d failed in %s\n",
		summary.TotalCases, summary.SuccessCount, summary.FailureCount,
		summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))
	return err
}

func formatValue(c models.SweepCase) string {
	if c.Param == "" {
		return "-"
	}
	if c.Value == nil {
		return "(omitted)"
	}
	raw, err := json.Marshal(c.Value)
	if err != nil {
		return fmt.Sprint(c.Value)
	}
	return string(raw)
}

package dedup_test

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"

	"github.com/viddup/viddup/internal/ann"
	_ "github.com/viddup/viddup/internal/ann/flat"
	"github.com/viddup/viddup/internal/dedup"
	"github.com/viddup/viddup/internal/record"
	"github.com/viddup/viddup/internal/window"
)

// ddFiles resolves any id to a synthetic 25fps file record, so fixtures
// only need to name ids.
type ddFiles struct{}

func (ddFiles) GetFile(ctx context.Context, id int64) (record.File, error) {
	return record.File{ID: id, Path: fmt.Sprintf("/library/%d.mp4", id), FPS: 25}, nil
}

// TestReduceDataDriven drives the full reducer walk from testdata/reduce.
// Each "reduce" command takes radius (and optionally step) as args; its
// input is one line per assembled window ("window <file-id> <first-frame>
// <v1,v2,...>", row order = line order) plus optional "whitelist <a> <b>"
// lines. The expected output is one "file=<id> offset=<seconds>" line per
// cluster entry, clusters separated by a blank line.
func TestReduceDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/reduce", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "reduce":
			var arg string
			d.ScanArgs(t, "radius", &arg)
			radius, err := strconv.ParseFloat(arg, 64)
			require.NoError(t, err)
			step := 1
			if d.HasArg("step") {
				d.ScanArgs(t, "step", &step)
			}

			var windows []window.Window
			checker := &fakeChecker{whitelisted: map[[2]int64]bool{}}
			for _, line := range strings.Split(strings.TrimSpace(d.Input), "\n") {
				fields := strings.Fields(line)
				require.NotEmpty(t, fields)
				switch fields[0] {
				case "window":
					require.Len(t, fields, 4)
					fileID, err := strconv.ParseInt(fields[1], 10, 64)
					require.NoError(t, err)
					firstFrame, err := strconv.ParseInt(fields[2], 10, 64)
					require.NoError(t, err)
					var values ann.Vector
					for _, raw := range strings.Split(fields[3], ",") {
						v, err := strconv.ParseFloat(raw, 64)
						require.NoError(t, err)
						values = append(values, v)
					}
					windows = append(windows, window.Window{
						FileID: fileID, FirstFrame: firstFrame, Values: values,
					})
				case "whitelist":
					require.Len(t, fields, 3)
					a, err := strconv.ParseInt(fields[1], 10, 64)
					require.NoError(t, err)
					b, err := strconv.ParseInt(fields[2], 10, 64)
					require.NoError(t, err)
					if a > b {
						a, b = b, a
					}
					checker.whitelisted[[2]int64{a, b}] = true
				default:
					t.Fatalf("unknown input line %q", line)
				}
			}

			idx := buildIndex(t, windows)
			clusters, err := dedup.Reduce(context.Background(), windows, idx,
				dedup.Params{Step: step, Radius: radius}, checker, ddFiles{})
			require.NoError(t, err)

			var sb strings.Builder
			for i, c := range clusters {
				if i > 0 {
					sb.WriteString("\n")
				}
				for _, e := range c.Entries {
					fmt.Fprintf(&sb, "file=%d offset=%.2f\n", e.File.ID, e.OffsetSeconds)
				}
			}
			return sb.String()
		default:
			t.Fatalf("unknown command %q", d.Cmd)
			return ""
		}
	})
}

package cmd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/foxglove-labs/go-rosbag"
	"github.com/foxglove-labs/go-rosbag/source"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func addRow(rows [][]string, field string, value string, args ...any) [][]string {
	return append(rows, []string{field, fmt.Sprintf(value, args...)})
}

// printSummaryRows renders rows as a borderless two-column table, matching
// the teacher's expanded-display layout for nested data.
func printSummaryRows(w io.Writer, rows [][]string) error {
	buf := &bytes.Buffer{}
	tw := tablewriter.NewWriter(buf)
	tw.SetBorder(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnSeparator("")
	tw.AppendBulk(rows)
	tw.Render()
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		fmt.Fprintln(w, strings.TrimLeft(scanner.Text(), " "))
	}
	return scanner.Err()
}

func decimalTime(t rosbag.Time) string {
	return fmt.Sprintf("%d.%09d", t.Sec, t.Nsec)
}

func printInfo(w io.Writer, bag *rosbag.Bag) error {
	rows := [][]string{
		{"start:", decimalTime(bag.StartTime())},
		{"end:", decimalTime(bag.EndTime())},
	}
	rows = addRow(rows, "chunks:", "%d", bag.ChunkCount())
	rows = addRow(rows, "connections:", "%d", len(bag.Connections()))
	if err := printSummaryRows(w, rows); err != nil {
		return err
	}

	counts := bag.MessageCounts()
	var connIDs []uint32
	for id := range bag.Connections() {
		connIDs = append(connIDs, id)
	}
	sort.Slice(connIDs, func(i, j int) bool { return connIDs[i] < connIDs[j] })

	fmt.Fprintln(w, "topics:")
	var topicRows [][]string
	for _, id := range connIDs {
		conn := bag.Connections()[id]
		topicRows = append(topicRows, []string{
			fmt.Sprintf("\t(%d) %s", id, color.CyanString(conn.Topic)),
			fmt.Sprintf("%d msgs", counts[id]),
			fmt.Sprintf(": %s", conn.Header.Type),
		})
	}
	return printSummaryRows(w, topicRows)
}

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Report statistics about a ROS bag v2.0 file",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		src, err := source.OpenFile(args[0])
		if err != nil {
			die("Failed to open %s: %s", args[0], err)
		}
		defer src.Close()

		bag, err := rosbag.Open(ctx, src)
		if err != nil {
			die("Failed to open bag %s: %s", args[0], err)
		}
		defer bag.Close()

		if err := printInfo(os.Stdout, bag); err != nil {
			die("Failed to print info: %s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

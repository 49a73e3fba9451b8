package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/foxglove-labs/go-rosbag"
	"github.com/foxglove-labs/go-rosbag/roscodec"
	"github.com/foxglove-labs/go-rosbag/source"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	catTopics     string
	catStartSec   uint64
	catEndSec     uint64
	catFormatJSON bool
	catProgress   bool
	catNoParse    bool
)

// messageToJSON converts a decoded message value into a tree of plain Go
// values encoding/json already knows how to marshal: *roscodec.Message
// becomes a map keyed by its field names (encoding/json writes map keys in
// sorted order, not decode order), complex arrays become []interface{} of
// the same.
func messageToJSON(value interface{}) interface{} {
	switch v := value.(type) {
	case *roscodec.Message:
		if v == nil {
			return nil
		}
		out := make(map[string]interface{}, v.Len())
		for _, key := range v.Keys() {
			field, _ := v.Get(key)
			out[key] = messageToJSON(field)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, elem := range v {
			out[i] = messageToJSON(elem)
		}
		return out
	default:
		return v
	}
}

type jsonRecord struct {
	Topic     string      `json:"topic"`
	Sec       uint32      `json:"sec"`
	Nsec      uint32      `json:"nsec"`
	Data      interface{} `json:"data,omitempty"`
	RawLength int         `json:"raw_length,omitempty"`
}

func printMessages(w *bufio.Writer, bag *rosbag.Bag, opts rosbag.ReadOptions, formatJSON bool, bar *progressbar.ProgressBar) error {
	encoder := json.NewEncoder(w)
	lastChunk := -1
	return bag.ReadMessages(context.Background(), opts, func(result rosbag.ReadResult) error {
		if bar != nil && result.ChunkOffset != lastChunk {
			lastChunk = result.ChunkOffset
			if err := bar.Set(lastChunk + 1); err != nil {
				return err
			}
		}
		if formatJSON {
			rec := jsonRecord{Topic: result.Topic, Sec: result.Timestamp.Sec, Nsec: result.Timestamp.Nsec}
			if result.Message != nil {
				rec.Data = messageToJSON(result.Message)
			} else {
				rec.RawLength = len(result.Data)
			}
			return encoder.Encode(rec)
		}
		if len(result.Data) > 10 {
			fmt.Fprintf(w, "%d.%09d %s [%d bytes] %v...\n", result.Timestamp.Sec, result.Timestamp.Nsec, result.Topic, len(result.Data), result.Data[:10])
		} else {
			fmt.Fprintf(w, "%d.%09d %s [%d bytes] %v\n", result.Timestamp.Sec, result.Timestamp.Nsec, result.Topic, len(result.Data), result.Data)
		}
		return nil
	})
}

var catCmd = &cobra.Command{
	Use:   "cat [file]",
	Short: "Stream the decoded messages in a ROS bag v2.0 file to stdout",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
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

		opts := rosbag.ReadOptions{NoParse: catNoParse}
		if catTopics != "" {
			opts.Topics = strings.Split(catTopics, ",")
		}
		if cmd.Flags().Changed("start-secs") {
			opts.StartTime = rosbag.Time{Sec: uint32(catStartSec)}
		}
		if cmd.Flags().Changed("end-secs") {
			end := rosbag.Time{Sec: uint32(catEndSec)}
			opts.EndTime = &end
		}

		var bar *progressbar.ProgressBar
		if catProgress {
			bar = progressbar.Default(int64(bag.ChunkCount()), "decoding")
		}

		output := bufio.NewWriter(os.Stdout)
		defer output.Flush()

		if err := printMessages(output, bag, opts, catFormatJSON, bar); err != nil {
			die("Failed to print messages from %s: %s", args[0], err)
		}
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
	catCmd.Flags().StringVar(&catTopics, "topics", "", "comma-separated list of topics")
	catCmd.Flags().Uint64Var(&catStartSec, "start-secs", 0, "start time, seconds since epoch")
	catCmd.Flags().Uint64Var(&catEndSec, "end-secs", 0, "end time, seconds since epoch")
	catCmd.Flags().BoolVar(&catFormatJSON, "json", false, "print messages as newline-delimited JSON")
	catCmd.Flags().BoolVar(&catProgress, "progress", false, "show a progress bar over chunks visited")
	catCmd.Flags().BoolVar(&catNoParse, "no-parse", false, "skip message-body decoding and print raw byte lengths")
}

package main

import "github.com/foxglove-labs/go-rosbag/cmd/rosbag/cmd"

func main() {
	cmd.Execute()
}

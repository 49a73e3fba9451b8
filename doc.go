// Package rosbag implements the ROS bag v2.0 container format,
// http://wiki.ros.org/Bags/Format/2.0.
//
// A bag concatenates length-framed records. Each record has a header-field
// block (see fields.go) and a data block whose shape depends on the record's
// opcode (see record.go). rosbag.Open reads the preamble, the bag header
// record, and the trailing connection/chunk-info index, then lets callers
// stream decoded messages through ReadMessages, in timestamp order within
// each chunk and chunk by chunk in bag-stored order.
//
// Message bodies are decoded against the per-connection schema carried in
// each Connection record; schema parsing lives in package rosmsg and codec
// generation in package roscodec.
package rosbag

//go:build linux

package xlnx

var defaultMapper Mapper = DevMemMapper

// Command attach-source-info records the source location of start tags as data-line
// and data-column attributes.
package main

import (
	"github.com/arnodel/struckstream/stage"
	_ "github.com/arnodel/struckstream/transform"
)

func main() {
	stage.Main("source_info")
}

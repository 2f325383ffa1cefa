// Command youtube-directive expands youtube directives into embedded players.
package main

import (
	"github.com/arnodel/struckstream/stage"
	_ "github.com/arnodel/struckstream/transform"
)

func main() {
	stage.Main("youtube")
}

// Command api-role expands api roles into links to the API reference.
package main

import (
	"github.com/arnodel/struckstream/stage"
	_ "github.com/arnodel/struckstream/transform"
)

func main() {
	stage.Main("api_role")
}

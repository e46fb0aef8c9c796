// xrai screens a single X-ray image for fractures.
//
// Usage:
//
//	xrai [--config xrai.yaml] [--image NAME] [--scan-dir DIR] [--model-dir DIR]
//	xrai version
package main

import "os"

func main() {
	os.Exit(execute())
}

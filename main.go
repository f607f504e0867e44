package main

import "github.com/candlepulse/candle-pusher/cmd"

func main() {
	cmd.Execute()
}

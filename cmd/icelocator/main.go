// Command icelocator is the CLI surface over the search core: run one-off
// searches, drive bulk batches, inspect or purge the result cache, and
// start the stdio/HTTP tool-invocation transport.
package main

func main() {
	Execute()
}

// Command yb stores named binary blobs in the PIV data objects of a hardware
// security token, optionally encrypted against an on-device EC key.
package main

func main() {
	Execute()
}

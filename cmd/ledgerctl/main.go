// ledgerctl is the command-line front end of the ledger coordinator: it
// submits banking operations to the consensus cluster, inspects cluster
// state and drives algorithm switches.
package main

func main() {
	execute()
}

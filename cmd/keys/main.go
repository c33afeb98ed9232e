package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
)

// generates ledger keypairs for local payee and payer wallets, optionally
// funding them on the test network
func main() {
	count := flag.Int("n", 2, "keypairs to generate")
	fund := flag.Bool("fund", false, "fund each account through the testnet friendbot")
	flag.Parse()

	for i := 0; i < *count; i++ {
		kp := keypair.MustRandom()
		fmt.Println("address:", kp.Address())
		fmt.Println("seed:   ", kp.Seed())
		if !*fund {
			continue
		}
		tx, err := horizonclient.DefaultTestNetClient.Fund(kp.Address())
		if err != nil {
			log.Fatalf("Funding %s failed: %v", kp.Address(), err)
		}
		fmt.Println("funded: ", tx.Hash)
	}
}

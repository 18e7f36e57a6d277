// Package wallet adapts a go-ethereum keystore to the signer
// capability the chain client consumes. Signing stays external to the
// contract core: this package only holds the connected account.
package wallet

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"unigame/internal/fault"
)

// Wallet is a keystore-backed signer for one account.
type Wallet struct {
	ks      *keystore.KeyStore
	account accounts.Account
}

// Open unlocks the named account in the keystore directory. The
// passphrase is read from passphraseFile.
func Open(keystoreDir, address, passphraseFile string) (*Wallet, error) {
	if keystoreDir == "" {
		return nil, fault.New("wallet.open", fault.KindWallet, "keystore directory not configured")
	}
	if !common.IsHexAddress(address) {
		return nil, fault.New("wallet.open", fault.KindWallet, fmt.Sprintf("invalid account address: %s", address))
	}

	ks := keystore.NewKeyStore(keystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	account, err := ks.Find(accounts.Account{Address: common.HexToAddress(address)})
	if err != nil {
		return nil, fault.Wrap("wallet.open", fault.KindWallet, err)
	}

	passphrase := ""
	if passphraseFile != "" {
		raw, err := os.ReadFile(passphraseFile)
		if err != nil {
			return nil, fault.Wrap("wallet.open", fault.KindWallet, err)
		}
		passphrase = strings.TrimSpace(string(raw))
	}

	if err := ks.Unlock(account, passphrase); err != nil {
		// A wrong or withheld passphrase is the headless equivalent
		// of the user declining to sign.
		return nil, fault.Wrap("wallet.open", fault.KindRejected, err)
	}

	return &Wallet{ks: ks, account: account}, nil
}

// Address returns the connected account.
func (w *Wallet) Address() common.Address {
	return w.account.Address
}

// SignTx signs a transaction with the unlocked account.
func (w *Wallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := w.ks.SignTx(w.account, tx, chainID)
	if err != nil {
		if err == keystore.ErrLocked {
			return nil, fault.Wrap("wallet.sign", fault.KindRejected, err)
		}
		return nil, fault.Wrap("wallet.sign", fault.KindWallet, err)
	}
	return signed, nil
}

// Lock re-locks the account.
func (w *Wallet) Lock() error {
	return w.ks.Lock(w.account.Address)
}

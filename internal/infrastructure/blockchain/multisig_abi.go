package blockchain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const walletABIJSON = `[
 {"type":"function","name":"getOwners","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
 {"type":"function","name":"required","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"transactionCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"transactions","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
  {"name":"txType","type":"uint8"},
  {"name":"destination","type":"address"},
  {"name":"value","type":"uint256"},
  {"name":"token","type":"address"},
  {"name":"data","type":"bytes"},
  {"name":"executed","type":"bool"}]},
 {"type":"function","name":"confirmations","stateMutability":"view","inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"getConfirmations","stateMutability":"view","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[{"name":"","type":"address[]"}]},
 {"type":"function","name":"submitTransaction","stateMutability":"nonpayable","inputs":[
  {"name":"txType","type":"uint8"},
  {"name":"destination","type":"address"},
  {"name":"value","type":"uint256"},
  {"name":"token","type":"address"},
  {"name":"data","type":"bytes"}],"outputs":[{"name":"transactionId","type":"uint256"}]},
 {"type":"function","name":"confirmTransaction","stateMutability":"nonpayable","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"executeTransaction","stateMutability":"nonpayable","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[]},
 {"type":"event","name":"Submission","anonymous":false,"inputs":[{"name":"transactionId","type":"uint256","indexed":true}]},
 {"type":"event","name":"Confirmation","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"transactionId","type":"uint256","indexed":true}]},
 {"type":"event","name":"Execution","anonymous":false,"inputs":[{"name":"transactionId","type":"uint256","indexed":true}]},
 {"type":"event","name":"ExecutionFailure","anonymous":false,"inputs":[{"name":"transactionId","type":"uint256","indexed":true}]},
 {"type":"event","name":"Deposit","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

const factoryABIJSON = `[
 {"type":"function","name":"createWallet","stateMutability":"nonpayable","inputs":[{"name":"owners","type":"address[]"},{"name":"required","type":"uint256"}],"outputs":[{"name":"wallet","type":"address"}]},
 {"type":"function","name":"getDeployedWallets","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
 {"type":"function","name":"getWalletsForOwner","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"address[]"}]},
 {"type":"event","name":"WalletCreated","anonymous":false,"inputs":[
  {"name":"creator","type":"address","indexed":true},
  {"name":"owners","type":"address[]","indexed":false},
  {"name":"wallet","type":"address","indexed":false}]}
]`

const erc20ABIJSON = `[
 {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var (
	walletABI  = mustParseABI(walletABIJSON)
	factoryABI = mustParseABI(factoryABIJSON)
	erc20ABI   = mustParseABI(erc20ABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

package stake

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// VaultAddress derives the deterministic account under which the vault holds
// custody items, the reward pool and collected fees. Deriving it from a fixed
// label keeps the funding address stable across restarts without persisting a
// key.
func VaultAddress() [20]byte {
	hash := ethcrypto.Keccak256([]byte("stakevault/vault"))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

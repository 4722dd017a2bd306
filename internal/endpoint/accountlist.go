package endpoint

import (
	"github.com/gagliardetto/solana-go"
)

// accountList builds the ordered account list the outbound call consumes.
// The downstream program indexes into this list positionally, so the only
// operation offered is append; nothing may sort, deduplicate, or reorder it.
type accountList struct {
	metas []*solana.AccountMeta
}

func newAccountList(capacity int) *accountList {
	return &accountList{metas: make([]*solana.AccountMeta, 0, capacity)}
}

func (l *accountList) readonly(key solana.PublicKey) {
	l.metas = append(l.metas, &solana.AccountMeta{PublicKey: key})
}

func (l *accountList) writable(key solana.PublicKey) {
	l.metas = append(l.metas, &solana.AccountMeta{PublicKey: key, IsWritable: true})
}

func (l *accountList) signer(key solana.PublicKey, writable bool) {
	l.metas = append(l.metas, &solana.AccountMeta{PublicKey: key, IsSigner: true, IsWritable: writable})
}

func (l *accountList) flatten() []*solana.AccountMeta {
	return l.metas
}

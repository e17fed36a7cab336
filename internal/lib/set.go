package lib

import "github.com/ethereum/go-ethereum/common"

type AddressSet map[common.Address]struct{}

func NewAddressSet(addrs ...common.Address) AddressSet {
	s := make(map[common.Address]struct{}, len(addrs))
	for _, a := range addrs {
		s[a] = struct{}{}
	}
	return AddressSet(s)
}

func (s AddressSet) Add(addrs ...common.Address) {
	for _, a := range addrs {
		s[a] = struct{}{}
	}
}

func (s AddressSet) Remove(addr common.Address) bool {
	_, c := s[addr]
	delete(s, addr)
	return c
}

func (s AddressSet) Contains(addr common.Address) bool {
	_, c := s[addr]
	return c
}

func (s AddressSet) Len() int {
	return len(s)
}

func (s AddressSet) ToSlice() []common.Address {
	keys := make([]common.Address, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

func (s AddressSet) Copy() AddressSet {
	return NewAddressSet(s.ToSlice()...)
}

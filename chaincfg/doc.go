// Copyright (c) 2014-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the bitcoin networks a peer can connect to.
//
// Each network is identified on the wire by the magic carried in every message
// header.  A Params value bundles that magic with the network's name, default
// peer-to-peer port and DNS seeds.  The standard networks are registered when
// the package is initialized, and applications may register their own with
// Register before looking them up with ParamsByName or ParamsByNet.
package chaincfg

// go-cardloop
// Copyright (c) 2026 The Cardloop Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-cardloop.
//
// go-cardloop is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-cardloop is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-cardloop; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package cardloop

// StatusPin abstracts a digital output such as an indicator LED. Set and
// Clear refer to the logical state; an active-low implementation inverts
// the electrical level underneath.
type StatusPin interface {
	// Set drives the pin to its logical on state
	Set() error

	// Clear drives the pin to its logical off state
	Clear() error

	// Toggle inverts the pin state
	Toggle() error

	// State reports the current logical state
	State() bool
}

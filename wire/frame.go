// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package wire

import (
	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/serializer"
)

// EncodeFrame serializes a Message envelope for handoff to a
// transport.Channel. The envelope itself always travels through the
// session's configured serializer, the same collaborator Build/Decrypt
// use for the payload it carries.
func EncodeFrame(ser serializer.Serializer, msg *Message) ([]byte, error) {
	data, err := ser.Serialize(msg)
	if err != nil {
		return nil, rpcerrors.NetworkError("serialize message envelope", err)
	}
	return data, nil
}

// DecodeFrame recovers a Message envelope from raw transport bytes, and
// normalizes its MessageType for case-insensitive dispatch.
func DecodeFrame(ser serializer.Serializer, data []byte) (*Message, error) {
	var msg Message
	if err := ser.Deserialize(data, &msg); err != nil {
		return nil, rpcerrors.NetworkError("deserialize message envelope", err)
	}
	msg.MessageType = Normalize(msg.MessageType)
	return &msg, nil
}

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
	"crypto/rsa"

	sagecrypto "github.com/sage-x-project/remoting/crypto"
	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/serializer"
)

// Build constructs an outgoing Message. When sharedSecret is nil,
// encryption is off and the payload travels as plain serialized bytes.
// When present, the payload is symmetrically encrypted under
// SHA-256(sharedSecret) with a fresh IV, then wrapped in a
// SignedMessageData whose signature is computed with signerKey over the
// encrypted bytes.
func Build(
	messageType MessageType,
	ser serializer.Serializer,
	payload interface{},
	signerKey *rsa.PrivateKey,
	sharedSecret []byte,
	uniqueCallKey string,
	errorFlag bool,
) (*Message, error) {
	raw, err := ser.Serialize(payload)
	if err != nil {
		return nil, rpcerrors.NetworkError("serialize payload", err)
	}

	msg := &Message{
		MessageType:   messageType,
		UniqueCallKey: uniqueCallKey,
		Error:         errorFlag,
	}

	if sharedSecret == nil {
		msg.Data = raw
		return msg, nil
	}

	inner, iv, err := sagecrypto.EncryptSymmetric(sharedSecret, raw)
	if err != nil {
		return nil, rpcerrors.SecurityError("encrypt payload", err)
	}

	signature, err := sagecrypto.Sign(signerKey, inner)
	if err != nil {
		return nil, rpcerrors.SecurityError("sign payload", err)
	}

	signed := SignedMessageData{MessageRawData: inner, Signature: signature}
	data, err := ser.Serialize(signed)
	if err != nil {
		return nil, rpcerrors.NetworkError("serialize signed envelope", err)
	}

	msg.Data = data
	msg.IV = iv
	return msg, nil
}

// Decrypt recovers the plaintext payload bytes of an incoming Message.
// When sharedSecret is nil, the message travels cleartext and Data is
// returned unmodified. Otherwise the SignedMessageData envelope is
// deserialized, its signature verified against sendersPublicKey, and the
// raw bytes symmetrically decrypted.
func Decrypt(
	msg *Message,
	ser serializer.Serializer,
	sharedSecret []byte,
	sendersPublicKey *rsa.PublicKey,
) ([]byte, error) {
	if sharedSecret == nil {
		return msg.Data, nil
	}

	var signed SignedMessageData
	if err := ser.Deserialize(msg.Data, &signed); err != nil {
		return nil, rpcerrors.NetworkError("deserialize signed envelope", err)
	}

	if err := sagecrypto.Verify(sendersPublicKey, signed.MessageRawData, signed.Signature); err != nil {
		return nil, rpcerrors.SecurityError("signature verification failed", err)
	}

	plaintext, err := sagecrypto.DecryptSymmetric(sharedSecret, msg.IV, signed.MessageRawData)
	if err != nil {
		return nil, rpcerrors.SecurityError("decrypt payload", err)
	}
	return plaintext, nil
}

// BuildHandshakeSecret builds the handshake-completion message's
// asymmetric payload: a SignedMessageData whose raw bytes are a
// serialized EncryptedSecret wrapping cleartext (the session UUID) under
// the client's RSA public key, signed by the server's RSA private key.
func BuildHandshakeSecret(
	ser serializer.Serializer,
	cleartext []byte,
	receiverPublic, senderPublic *rsa.PublicKey,
	senderPrivate *rsa.PrivateKey,
) (*Message, error) {
	secret, err := sagecrypto.EncryptSecret(receiverPublic, cleartext, senderPublic)
	if err != nil {
		return nil, rpcerrors.SecurityError("build handshake secret", err)
	}

	raw, err := ser.Serialize(secret)
	if err != nil {
		return nil, rpcerrors.NetworkError("serialize handshake secret", err)
	}

	signature, err := sagecrypto.Sign(senderPrivate, raw)
	if err != nil {
		return nil, rpcerrors.SecurityError("sign handshake secret", err)
	}

	signed := SignedMessageData{MessageRawData: raw, Signature: signature}
	data, err := ser.Serialize(signed)
	if err != nil {
		return nil, rpcerrors.NetworkError("serialize signed handshake envelope", err)
	}

	return &Message{MessageType: TypeCompleteHandshake, Data: data}, nil
}

// DecryptHandshakeSecret recovers the cleartext wrapped in a
// BuildHandshakeSecret message, using the receiver's RSA private key to
// unwrap the asymmetric envelope after verifying the sender's signature.
func DecryptHandshakeSecret(
	msg *Message,
	ser serializer.Serializer,
	sendersPublicKey *rsa.PublicKey,
	receiverPrivate *rsa.PrivateKey,
) ([]byte, error) {
	var signed SignedMessageData
	if err := ser.Deserialize(msg.Data, &signed); err != nil {
		return nil, rpcerrors.NetworkError("deserialize signed handshake envelope", err)
	}

	if err := sagecrypto.Verify(sendersPublicKey, signed.MessageRawData, signed.Signature); err != nil {
		return nil, rpcerrors.SecurityError("handshake signature verification failed", err)
	}

	var secret sagecrypto.EncryptedSecret
	if err := ser.Deserialize(signed.MessageRawData, &secret); err != nil {
		return nil, rpcerrors.NetworkError("deserialize handshake secret", err)
	}

	cleartext, err := sagecrypto.DecryptSecret(receiverPrivate, &secret)
	if err != nil {
		return nil, rpcerrors.SecurityError("decrypt handshake secret", err)
	}
	return cleartext, nil
}

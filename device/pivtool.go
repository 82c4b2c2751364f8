package device

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// pkcs11Lib is the PKCS#11 module used for on-device ECDH.
const pkcs11Lib = "libykcs11.so"

// pkcs11IDs maps a PIV key slot to the PKCS#11 object id exposed by ykcs11.
var pkcs11IDs = map[KeySlot]string{
	0x9a: "01", 0x9c: "02", 0x9d: "03", 0x9e: "04",
	0x82: "05", 0x83: "06", 0x84: "07", 0x85: "08",
	0x86: "09", 0x87: "0a", 0x88: "0b", 0x89: "0c",
	0x8a: "0d", 0x8b: "0e", 0x8c: "0f", 0x8d: "10",
	0x8e: "11", 0x8f: "12", 0x90: "13", 0x91: "14",
	0x92: "15", 0x93: "16", 0x94: "17", 0x95: "18",
}

// PivTool drives a physical token through the yubico-piv-tool and pkcs11-tool
// command-line utilities. Object access goes through the PC/SC reader name;
// ECDH goes through PKCS#11 token selection by hardware serial. Both come
// from the same Handle, so every operation lands on the same token.
type PivTool struct {
	handle Handle
}

// NewPivTool creates a hardware Device for the token named by handle.
func NewPivTool(handle Handle) *PivTool {
	return &PivTool{handle: handle}
}

// ListReaders returns the connected PC/SC reader names.
func ListReaders() ([]string, error) {
	out, err := exec.Command("yubico-piv-tool", "--action", "list-readers").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: list readers: %w", ErrIO, err)
	}
	var readers []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			readers = append(readers, line)
		}
	}
	return readers, nil
}

// ReadObject reads the raw contents of a data-object slot.
func (p *PivTool) ReadObject(id ObjectID) ([]byte, error) {
	cmd := exec.Command("yubico-piv-tool",
		"--reader", p.handle.Reader,
		"--action", "read-object",
		"--format", "binary",
		"--id", fmt.Sprintf("%#06x", uint32(id)),
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if strings.Contains(stderr.String(), "Failed fetching") {
			return nil, ErrObjectEmpty
		}
		return nil, fmt.Errorf("%w: read object %#06x: %s", ErrIO, uint32(id), strings.TrimSpace(stderr.String()))
	}
	if len(out) == 0 {
		return nil, ErrObjectEmpty
	}
	return out, nil
}

// WriteObject writes raw bytes into a data-object slot.
func (p *PivTool) WriteObject(id ObjectID, data []byte, auth Auth) error {
	if len(data) > MaxObjectBytes {
		return fmt.Errorf("%w: %d bytes", ErrObjectTooLarge, len(data))
	}
	args := []string{
		"--reader", p.handle.Reader,
		"--action", "write-object",
		"--format", "binary",
		"--id", fmt.Sprintf("%#06x", uint32(id)),
	}
	if len(auth.ManagementKey) > 0 {
		args = append(args, "--key", fmt.Sprintf("%x", auth.ManagementKey))
	}
	cmd := exec.Command("yubico-piv-tool", args...)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if strings.Contains(msg, "Authentication") || strings.Contains(msg, "authentication") {
			return ErrAuth
		}
		return fmt.Errorf("%w: write object %#06x: %s", ErrIO, uint32(id), strings.TrimSpace(msg))
	}
	return nil
}

// PublicKey reads the slot's certificate and extracts the public EC point.
func (p *PivTool) PublicKey(slot KeySlot) ([]byte, error) {
	cmd := exec.Command("yubico-piv-tool",
		"--reader", p.handle.Reader,
		"--slot", fmt.Sprintf("%02x", uint8(slot)),
		"--action", "read-certificate",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: slot %02x: %s", ErrNoKey, uint8(slot), strings.TrimSpace(stderr.String()))
	}
	block, _ := pem.Decode(out)
	if block == nil {
		return nil, fmt.Errorf("%w: slot %02x: no PEM certificate", ErrNoKey, uint8(slot))
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse certificate: %w", ErrWrongAlgorithm, err)
	}
	ecPub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrWrongAlgorithm
	}
	pub, err := ecPub.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrongAlgorithm, err)
	}
	point := pub.Bytes()
	if len(point) != PublicKeyLen {
		return nil, ErrWrongAlgorithm
	}
	return point, nil
}

// ECDH derives the shared secret on the token via pkcs11-tool. The token is
// selected by the hardware serial from the handle, not by the reader name.
func (p *PivTool) ECDH(slot KeySlot, peerPub []byte, pin string) ([]byte, error) {
	id, ok := pkcs11IDs[slot]
	if !ok {
		return nil, fmt.Errorf("%w: slot %02x", ErrNoKey, uint8(slot))
	}

	in, err := os.CreateTemp("", "yb-peer-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer os.Remove(in.Name())
	out, err := os.CreateTemp("", "yb-shared-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer os.Remove(out.Name())

	if _, err := in.Write(peerPub); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	args := []string{
		"--module", pkcs11Lib,
		"-l",
		"--derive",
		"-m", "ECDH1-DERIVE",
		"--id", id,
		"-i", in.Name(),
		"-o", out.Name(),
	}
	if p.handle.Serial != "" {
		args = append(args, "--token-label", fmt.Sprintf("YubiKey PIV #%s", p.handle.Serial))
	}
	if pin != "" {
		args = append(args, "--pin", pin)
	}
	cmd := exec.Command("pkcs11-tool", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if strings.Contains(msg, "CKR_PIN_INCORRECT") {
			return nil, &PinError{Retries: -1}
		}
		if strings.Contains(msg, "CKR_PIN_LOCKED") {
			return nil, ErrPinBlocked
		}
		return nil, fmt.Errorf("%w: ECDH: %s", ErrIO, strings.TrimSpace(msg))
	}

	shared, err := os.ReadFile(out.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if len(shared) != SharedSecretLen {
		return nil, fmt.Errorf("%w: ECDH returned %d bytes", ErrIO, len(shared))
	}
	return shared, nil
}

// Authenticate verifies the PIN when one is supplied. A management key is
// validated by the device on the first write.
func (p *PivTool) Authenticate(auth Auth) error {
	if auth.PIN == "" {
		return nil
	}
	cmd := exec.Command("yubico-piv-tool",
		"--reader", p.handle.Reader,
		"--action", "verify-pin",
		"--pin", auth.PIN,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", ErrAuth, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// GenerateKey creates an EC P-256 key pair in the slot and provisions a
// self-signed certificate so PublicKey can read the point back.
func (p *PivTool) GenerateKey(slot KeySlot, subject string, auth Auth) error {
	pubFile, err := os.CreateTemp("", "yb-pub-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer os.Remove(pubFile.Name())
	certFile, err := os.CreateTemp("", "yb-cert-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer os.Remove(certFile.Name())

	slotArg := fmt.Sprintf("%02x", uint8(slot))
	genArgs := []string{
		"--reader", p.handle.Reader,
		"--action", "generate",
		"--slot", slotArg,
		"--algorithm", "ECCP256",
		"--touch-policy", "never",
		"--pin-policy", "once",
		"--output", pubFile.Name(),
	}
	if len(auth.ManagementKey) > 0 {
		genArgs = append(genArgs, "--key", fmt.Sprintf("%x", auth.ManagementKey))
	}
	if err := runPivTool(genArgs); err != nil {
		return err
	}

	signArgs := []string{
		"--reader", p.handle.Reader,
		"--action", "verify-pin",
		"--slot", slotArg,
		"--subject", subject + "/",
		"--action", "selfsign",
		"--input", pubFile.Name(),
		"--output", certFile.Name(),
	}
	if auth.PIN != "" {
		signArgs = append(signArgs, "--pin", auth.PIN)
	}
	if err := runPivTool(signArgs); err != nil {
		return err
	}

	importArgs := []string{
		"--reader", p.handle.Reader,
		"--action", "import-certificate",
		"--slot", slotArg,
		"--input", certFile.Name(),
	}
	if len(auth.ManagementKey) > 0 {
		importArgs = append(importArgs, "--key", fmt.Sprintf("%x", auth.ManagementKey))
	}
	return runPivTool(importArgs)
}

// runPivTool runs yubico-piv-tool and wraps failures as device I/O errors.
func runPivTool(args []string) error {
	cmd := exec.Command("yubico-piv-tool", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: yubico-piv-tool: %s", ErrIO, strings.TrimSpace(stderr.String()))
	}
	return nil
}

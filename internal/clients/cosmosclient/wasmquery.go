package cosmosclient

// Minimal gogoproto mirrors of cosmwasm.wasm.v1 QuerySmartContractState
// request/response. Declaring them locally keeps wasmd out of the dependency
// graph; the wire shape is two length-delimited bytes fields on each side.

type QuerySmartContractStateRequest struct {
	Address   string `protobuf:"bytes,1,opt,name=address,proto3" json:"address,omitempty"`
	QueryData []byte `protobuf:"bytes,2,opt,name=query_data,json=queryData,proto3" json:"query_data,omitempty"`
}

func (m *QuerySmartContractStateRequest) Reset() { *m = QuerySmartContractStateRequest{} }
func (m *QuerySmartContractStateRequest) String() string {
	return "QuerySmartContractStateRequest"
}
func (*QuerySmartContractStateRequest) ProtoMessage() {}

type QuerySmartContractStateResponse struct {
	Data []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *QuerySmartContractStateResponse) Reset() { *m = QuerySmartContractStateResponse{} }
func (m *QuerySmartContractStateResponse) String() string {
	return "QuerySmartContractStateResponse"
}
func (*QuerySmartContractStateResponse) ProtoMessage() {}
